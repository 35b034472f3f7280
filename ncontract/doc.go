// Stuff

/*

Package ncontract declares HTTP APIs as data.

A Contract is an ordered list of named endpoints.  Each Endpoint has a
method, a path template, and nshape.Shapes for its path parameters,
request body, success payload, and declared errors.  The same Contract
value drives the server side (npoint) and the client side (nclient),
so the two cannot drift apart.

	api := ncontract.New("Notes").
		AddEndpoint(ncontract.Get("getNote", "/notes/:id").
			Path(idShape).
			Response(200, noteShape).
			Error(404, "NoteNotFound", apiErrorShape))

Contracts are immutable: AddEndpoint returns a new Contract.  Adding
an endpoint whose name is already used, or whose path could never be
reached because an earlier endpoint with the same method already
matches every request it would match, panics.

OpenAPI renders a Contract as an OpenAPI 3 document.

*/
package ncontract
