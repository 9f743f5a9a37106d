package http

import (
	"net/http"

	"github.com/aussiebroadwan/docsauth/internal/api/endpoint"
)

// Groups declares the API. The values collection is protected as a whole,
// the identity echo per operation, and ping not at all.
func Groups(values *ValueStore) []endpoint.Group {
	vh := &ValuesHandler{Store: values}
	idParam := endpoint.Param{Name: "id", In: "path", Type: "integer", Description: "Value id", Required: true}

	return []endpoint.Group{
		{
			Prefix:    "/api/values",
			Tag:       "Values",
			Authorize: endpoint.Authorize(),
			Endpoints: []endpoint.Endpoint{
				{
					Method:      http.MethodGet,
					OperationID: "Values_List",
					Summary:     "List values",
					Response:    []Value{},
					Handler:     vh.List,
				},
				{
					Method:      http.MethodGet,
					Path:        "/{id}",
					OperationID: "Values_Get",
					Summary:     "Get a value",
					Params:      []endpoint.Param{idParam},
					Response:    Value{},
					Handler:     vh.Get,
				},
				{
					Method:      http.MethodPost,
					OperationID: "Values_Create",
					Summary:     "Create a value",
					Request:     CreateValueRequest{},
					Response:    Value{},
					Status:      http.StatusCreated,
					Handler:     vh.Create,
				},
				{
					Method:      http.MethodDelete,
					Path:        "/{id}",
					OperationID: "Values_Delete",
					Summary:     "Delete a value",
					Params:      []endpoint.Param{idParam},
					Status:      http.StatusNoContent,
					Handler:     vh.Delete,
				},
			},
		},
		{
			Prefix: "/api/identity",
			Tag:    "Identity",
			Endpoints: []endpoint.Endpoint{
				{
					Method:      http.MethodGet,
					OperationID: "Identity_Get",
					Summary:     "Caller identity",
					Response:    IdentityResponse{},
					Authorize:   endpoint.Authorize(),
					Handler:     Identity,
				},
			},
		},
		{
			Prefix: "/api/public",
			Tag:    "Public",
			Endpoints: []endpoint.Endpoint{
				{
					Method:      http.MethodGet,
					Path:        "/ping",
					OperationID: "Public_Ping",
					Summary:     "Public ping",
					Response:    PingResponse{},
					Handler:     Ping,
				},
			},
		},
	}
}
