// Stuff

/*

Package nvelope provides the response side helpers shared by npoint
and nclient.

ResponseEncoder marshals a model in the format negotiated from the
Accept header and writes it through a DeferredWriter.

DeferredWriter allows output to be buffered and then abandoned.

NotFound, BadRequest, RequestTooLarge, and UnsupportedMediaType
annotate an error with the HTTP code it should produce.
GetReturnCode reads it back.

CatchPanic turns a panic into a PanicError return so a handler bug
becomes an ordinary 500.

BasicLogger is the small logging interface the other packages
accept.  LoggerFromZap adapts a zap.Logger to it.

*/
package nvelope
