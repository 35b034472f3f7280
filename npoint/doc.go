// Stuff

/*

Package npoint serves an ncontract.Contract over HTTP.

Bind a contract, give every endpoint a handler, and Build a
Dispatcher:

	d, err := npoint.Bind(api, npoint.WithLogger(log)).
		Handle("getNote", getNote).
		Handle("getNotes", getNotes).
		Build()

Build fails if any endpoint has no handler.  Handle panics if the
operation is unknown or already bound.

The Dispatcher is an http.Handler.  Every request goes through the
same pipeline and stops at the first failure:

	match route          RouteNotFound, 404
	decode path          400
	read and decode body 400, 413, 415
	call the handler     declared failure (see Fail) or 500
	encode the result    with the endpoint's success status

Request bodies may be JSON, YAML, or CBOR per Content-Type.  The
response format follows Accept and defaults to JSON.

Failures the dispatcher produces itself, and unexpected handler
errors, have the body {message, details}.  Unexpected errors are
logged in full but the client only sees the operation name and the
request id.

Each request gets one trace span named after the operation.  Path
parameters are attached to it before the handler runs.

*/
package npoint
