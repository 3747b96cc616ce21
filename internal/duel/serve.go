package duel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Serve answers Sandbox requests read from r using eng until r hits EOF.
// It is the main loop of an engine host process.
func Serve(ctx context.Context, r io.Reader, w io.Writer, eng Engine) error {
	dec := json.NewDecoder(r)
	enc := json.NewEncoder(w)
	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode request: %w", err)
		}
		resp := dispatch(ctx, eng, req)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	}
}

func dispatch(ctx context.Context, eng Engine, req request) response {
	var (
		resp response
		err  error
	)
	switch req.Op {
	case opCreate:
		if req.Options == nil {
			err = errors.New("missing options")
			break
		}
		resp.Handle, err = eng.Create(ctx, *req.Options)
	case opAddCard:
		if req.Card == nil {
			err = errors.New("missing card")
			break
		}
		err = eng.AddCard(ctx, req.Handle, *req.Card)
	case opStart:
		err = eng.Start(ctx, req.Handle)
	case opProcess:
		resp.Status, err = eng.Process(ctx, req.Handle)
	case opGetMessages:
		resp.Data, err = eng.GetMessages(ctx, req.Handle)
	case opSetResponse:
		err = eng.SetResponse(ctx, req.Handle, req.Data)
	case opQueryCount:
		resp.Count, err = eng.QueryCount(ctx, req.Handle, req.Team, req.Loc)
	case opQuery, opQueryLocation:
		if req.Query == nil {
			err = errors.New("missing query")
			break
		}
		if req.Op == opQuery {
			resp.Data, err = eng.Query(ctx, req.Handle, *req.Query)
		} else {
			resp.Data, err = eng.QueryLocation(ctx, req.Handle, *req.Query)
		}
	case opQueryField:
		resp.Data, err = eng.QueryField(ctx, req.Handle)
	case opDestroy:
		err = eng.Destroy(ctx, req.Handle)
	default:
		err = fmt.Errorf("unknown op %q", req.Op)
	}
	if err != nil {
		return response{Error: err.Error()}
	}
	return resp
}
