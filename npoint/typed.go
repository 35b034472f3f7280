package npoint

import (
	"context"

	"github.com/muir/napi/nshape"

	"github.com/pkg/errors"
)

// Typed adapts a function over Go types into a HandlerFunc.  P
// receives the path parameters and B the body, both converted with
// nshape.ToGo; use struct{} for endpoints that have neither.  The
// result is converted with nshape.FromGo.
//
//	binding.Handle("getNote", npoint.Typed(func(ctx context.Context, p IDPath, _ struct{}) (Note, error) {
//		...
//	}))
func Typed[P, B, R any](fn func(ctx context.Context, params P, body B) (R, error)) HandlerFunc {
	return func(ctx context.Context, req Request) (interface{}, error) {
		var params P
		if err := nshape.ToGo(req.Params, &params); err != nil {
			return nil, errors.Wrapf(err, "%s path parameters", req.Operation)
		}
		var body B
		if err := nshape.ToGo(req.Body, &body); err != nil {
			return nil, errors.Wrapf(err, "%s body", req.Operation)
		}
		return fn(ctx, params, body)
	}
}
