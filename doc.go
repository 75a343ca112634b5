// Package buyer provides a library of code that allows the standard
// library's http.Client to pay for HTTP content and services using the
// x402 protocol.
//
// When a server answers with 402 Payment Required, the buyer's
// http.RoundTripper picks the first payment option the server offers,
// signs an ERC-3009 TransferWithAuthorization for it and sends the
// request exactly one more time with the signed payment in the X-PAYMENT
// header.  Any other response is returned untouched.
//
// It is anticipated that this software will commonly be used to allow
// AI agents to pay for the services they need.  When allowing automated
// payments on your behalf, care should be taken to limit your financial
// exposure.
//
// Defaults
//
//   - If the WithClient option is not specified, the http.DefaultClient
//     is used with the http.DefaultTransport.
//   - If the WithLogger Option is not specified, a No-Op logger is used.
//   - If the WithMaxPaymentAmount Option is not specified, no more than
//     0.1 USDC (100000 atomic units) is paid for a single request.
package buyer
