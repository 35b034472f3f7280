// Stuff

/*

Package nclient calls the endpoints of an ncontract.Contract.

The client is derived from the same Contract value the server is
built from.  Path parameters and bodies are encoded with the
contract's Shapes before anything is sent, so arguments that do not
fit never leave the process.  Responses are decoded with the success
Shape, or with the Shape declared for the error status.

	c, err := nclient.New(api, nclient.DefaultConfig())
	note, err := nclient.Invoke[Note](ctx, c, "getNote", nclient.Args{Path: IDPath{ID: 1}})
	var declared *nclient.DeclaredError
	if errors.As(err, &declared) {
		...
	}

*/
package nclient
