package trigger

import (
	"context"

	"github.com/hazyhaar/formfill/kit"
	"github.com/hazyhaar/formfill/profile"
)

// profileSetRequest stores entries; Replace discards the previous profile
// first.
type profileSetRequest struct {
	Entries []profile.Entry `json:"entries"`
	Replace bool            `json:"replace,omitempty"`
}

type profileResponse struct {
	Entries profile.Profile `json:"entries"`
}

type keyRequest struct {
	Key string `json:"key"`
}

type deleteKeyResponse struct {
	Key     string `json:"key"`
	Deleted bool   `json:"deleted"`
}

// endpoints are shared by the HTTP and MCP surfaces.
type endpoints struct {
	trigger      kit.Endpoint
	profileGet   kit.Endpoint
	profileEntry kit.Endpoint
	profileSet   kit.Endpoint
	profileClear kit.Endpoint
	profileDel   kit.Endpoint
}

func (r *Router) endpoints() endpoints {
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.Logging(r.logger, name))(ep)
	}
	return endpoints{
		trigger: wrap("formfill_trigger", func(ctx context.Context, req any) (any, error) {
			return r.Call(ctx, *req.(*Command))
		}),
		profileGet: wrap("formfill_profile_get", func(ctx context.Context, _ any) (any, error) {
			p, err := r.Profile(ctx)
			if err != nil {
				return nil, err
			}
			return &profileResponse{Entries: p}, nil
		}),
		profileEntry: wrap("formfill_profile_entry", func(ctx context.Context, req any) (any, error) {
			return r.Entry(ctx, req.(*keyRequest).Key)
		}),
		profileSet: wrap("formfill_profile_set", func(ctx context.Context, req any) (any, error) {
			in := req.(*profileSetRequest)
			if in.Replace {
				return r.ReplaceProfile(ctx, in.Entries)
			}
			return r.Call(ctx, Command{Action: ActionUpdate, Entries: in.Entries})
		}),
		profileClear: wrap("formfill_profile_clear", func(ctx context.Context, _ any) (any, error) {
			return r.Call(ctx, Command{Action: ActionClear})
		}),
		profileDel: wrap("formfill_profile_delete", func(ctx context.Context, req any) (any, error) {
			in := req.(*keyRequest)
			ok, err := r.store.Delete(ctx, in.Key)
			if err != nil {
				return nil, err
			}
			return &deleteKeyResponse{Key: in.Key, Deleted: ok}, nil
		}),
	}
}
