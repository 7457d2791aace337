package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

type IDInput struct {
	ID string `path:"id" maxLength:"64" doc:"Resource ID"`
}

type CreateInput[B any] struct {
	Body B
}

type UpdateInput[B any] struct {
	ID   string `path:"id" maxLength:"64" doc:"Resource ID"`
	Body B
}

type ItemOutput[T any] struct {
	Body *T
}

type ListOutput[T any] struct {
	Body []*T
}

// resource registers the routes shared by every catalog resource. B and PB
// are the request bodies for create and update; toInput and toPatch turn them
// into the service's input types.
type resource[T, In, P, B, PB any] struct {
	svc      CatalogService[T, In, P]
	path     string
	singular string
	tag      string
	toInput  func(B) In
	toPatch  func(PB) P
}

func (r resource[T, In, P, B, PB]) register(api huma.API, withList bool) {
	if withList {
		huma.Register(api, huma.Operation{
			OperationID: "list-" + r.singular + "s",
			Method:      http.MethodGet,
			Path:        r.path,
			Summary:     "List " + r.singular + "s of the current organization",
			Tags:        []string{r.tag},
		}, func(ctx context.Context, _ *struct{}) (*ListOutput[T], error) {
			items, err := r.svc.List(ctx)
			if err != nil {
				return nil, httpError(ctx, err)
			}
			return &ListOutput[T]{Body: items}, nil
		})
	}

	huma.Register(api, huma.Operation{
		OperationID: "get-" + r.singular,
		Method:      http.MethodGet,
		Path:        r.path + "/{id}",
		Summary:     "Get a " + r.singular + " by ID",
		Tags:        []string{r.tag},
	}, func(ctx context.Context, input *IDInput) (*ItemOutput[T], error) {
		item, err := r.svc.Get(ctx, input.ID)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ItemOutput[T]{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-" + r.singular,
		Method:        http.MethodPost,
		Path:          r.path,
		Summary:       "Create a " + r.singular,
		Tags:          []string{r.tag},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateInput[B]) (*ItemOutput[T], error) {
		id, err := r.svc.Create(ctx, r.toInput(input.Body))
		if err != nil {
			return nil, httpError(ctx, err)
		}
		item, err := r.svc.Get(ctx, id)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ItemOutput[T]{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-" + r.singular,
		Method:      http.MethodPatch,
		Path:        r.path + "/{id}",
		Summary:     "Update the given fields of a " + r.singular,
		Tags:        []string{r.tag},
	}, func(ctx context.Context, input *UpdateInput[PB]) (*ItemOutput[T], error) {
		ok, err := r.svc.Update(ctx, input.ID, r.toPatch(input.Body))
		if err != nil {
			return nil, httpError(ctx, err)
		}
		if !ok {
			return nil, huma.Error404NotFound(r.singular + " not found")
		}
		item, err := r.svc.Get(ctx, input.ID)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		return &ItemOutput[T]{Body: item}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-" + r.singular,
		Method:        http.MethodDelete,
		Path:          r.path + "/{id}",
		Summary:       "Delete a " + r.singular,
		Tags:          []string{r.tag},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *IDInput) (*struct{}, error) {
		ok, err := r.svc.Delete(ctx, input.ID)
		if err != nil {
			return nil, httpError(ctx, err)
		}
		if !ok {
			return nil, huma.Error404NotFound(r.singular + " not found")
		}
		return nil, nil
	})
}
