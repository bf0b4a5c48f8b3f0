// Package router decides what happens to each inbound request.
//
// Given the request path and method, the Router looks up the matching rule
// and returns a Disposition:
//
//   - direct-return: respond 200 with the rule's response_data, no outbound call
//   - forward-to-mock: send the request to the mock server, with mock headers
//   - forward-with-body: send the request to the remote server with request_body
//     in place of the inbound body
//   - forward-to-remote: send the request to the remote server unchanged
//
// A rule with is_enable set to false is treated as if it were not configured
// at all, including its response_delay. The Router never mutates the RuleSet
// it reads and keeps no per-request state, so one Router serves all requests.
package router
