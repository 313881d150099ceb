package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/Lbridge2222/Teamforge-sub001/internal/analysis"
	"github.com/Lbridge2222/Teamforge-sub001/internal/config"
	"github.com/Lbridge2222/Teamforge-sub001/internal/engine"
	"github.com/Lbridge2222/Teamforge-sub001/internal/engine/auth"
	"github.com/Lbridge2222/Teamforge-sub001/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine   engine.Engine
	BasePath string
	Auth     AuthConfig
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"forbidden"`
	Message string         `json:"message" example:"permission model.write required"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"permission\":\"model.write\"}"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the required error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the Teamforge API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v1"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	huma.DefaultArrayNullable = false
	// Override Huma errors to use the required envelope.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema/request validation errors should be 400 bad_request
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth, cfg.Engine.Repo))
	hcfg := huma.DefaultConfig("Teamforge API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = "" // custom Swagger UI below
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	registerDocs(router, basePath)
	registerHealth(group)
	registerWorkspaces(group, cfg.Engine)
	registerRoles(group, cfg.Engine)
	registerStages(group, cfg.Engine)
	registerHandoffs(group, cfg.Engine)
	registerCategories(group, cfg.Engine)
	registerActivities(group, cfg.Engine)
	registerProgressions(group, cfg.Engine)
	registerDiagnostics(group, cfg.Engine)
	registerReports(group, cfg.Engine)
	registerEvents(group, cfg.Engine)
	registerRBAC(group, cfg.Engine)
	registerMe(group, cfg.Engine)
	registerDevAuth(group, cfg.Engine, cfg.Auth)
	registerOpenAPI(router, api, basePath)
	registerMCP(router, cfg.Engine)

	return router, nil
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var fe auth.ForbiddenError
	if errors.As(err, &fe) {
		return newAPIError(http.StatusForbidden, "forbidden", err.Error(), map[string]any{"permission": fe.Permission})
	}
	if errors.Is(err, repo.ErrNotFound) {
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	}
	msg := err.Error()
	lowered := strings.ToLower(msg)
	switch {
	case strings.Contains(lowered, "unknown belbin type"),
		strings.Contains(lowered, "not in workspace"),
		strings.Contains(lowered, "cannot target its own stage"):
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", msg, nil)
	case strings.Contains(lowered, "invalid") || strings.Contains(lowered, "missing") || strings.Contains(lowered, "required"):
		return newAPIError(http.StatusBadRequest, "bad_request", msg, nil)
	default:
		return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", map[string]any{"error": msg})
	}
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func hasPermission(perms []string, perm string) bool {
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}

func requirePermission(ctx context.Context, e engine.Engine, workspaceID, perm string) error {
	principal, authErr := principalFromRequest(ctx)
	if authErr != nil {
		return authErr
	}
	if hasPermission(principal.Permissions, perm) {
		return nil
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	ok, err := e.Auth.ActorHasPermission(ctx, tx, workspaceID, principal.ActorID, perm)
	if err != nil {
		return err
	}
	if !ok {
		return auth.ForbiddenError{Permission: perm}
	}
	return nil
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	oas.Components.SecuritySchemes["apiKeyAuth"] = &huma.SecurityScheme{
		Type: "apiKey",
		In:   "header",
		Name: "X-Api-Key",
	}
	security := []map[string][]string{
		{"bearerAuth": {}},
		{"apiKeyAuth": {}},
	}
	oas.Security = security
	healthPath := path.Join(basePath, "health")
	devLoginPath := path.Join(basePath, "auth/dev/login")
	if !strings.HasPrefix(healthPath, "/") {
		healthPath = "/" + healthPath
	}
	if !strings.HasPrefix(devLoginPath, "/") {
		devLoginPath = "/" + devLoginPath
	}
	for route, item := range oas.Paths {
		for _, op := range []*huma.Operation{
			item.Get, item.Put, item.Post, item.Delete, item.Options, item.Head, item.Patch, item.Trace,
		} {
			if op == nil {
				continue
			}
			if route == healthPath || route == devLoginPath {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Teamforge API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt; or X-Api-Key.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerWorkspaces(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-workspace",
		Method:        http.MethodPost,
		Path:          "/workspaces",
		Summary:       "Create workspace",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusConflict,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateWorkspaceRequest `json:"body"`
	}) (*struct {
		Body WorkspaceResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.ID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "id is required", nil)
		}
		if input.Body.OrgID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "org_id is required", nil)
		}
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		// Creating a workspace needs no prior grant: the creating actor
		// becomes its owner.
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		desc := stringOrEmpty(input.Body.Description)
		w, err := e.InitWorkspace(ctx, input.Body.ID, input.Body.OrgID, input.Body.Name, desc, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkspaceResponse `json:"body"`
		}{Body: workspaceResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-workspaces",
		Method:      http.MethodGet,
		Path:        "/workspaces",
		Summary:     "List workspaces",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body []WorkspaceResponse `json:"body"`
	}, error) {
		if _, authErr := actorIDFromContext(ctx); authErr != nil {
			return nil, authErr
		}
		items, err := e.Repo.ListWorkspaces(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]WorkspaceResponse, 0, len(items))
		for _, w := range items {
			res = append(res, workspaceResponse(w))
		}
		return &struct {
			Body []WorkspaceResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-workspace",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}",
		Summary:     "Get workspace",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
	}) (*struct {
		Body WorkspaceResponse `json:"body"`
	}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "workspace.read"); err != nil {
			return nil, handleError(err)
		}
		w, err := e.Repo.GetWorkspace(ctx, workspaceID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkspaceResponse `json:"body"`
		}{Body: workspaceResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-workspace",
		Method:      http.MethodPatch,
		Path:        "/workspaces/{workspace_id}",
		Summary:     "Update workspace",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		Body        struct {
			Name        *string `json:"name,omitempty"`
			Status      *string `json:"status,omitempty" enum:"active,archived"`
			Description *string `json:"description,omitempty"`
		} `json:"body"`
	}) (*struct {
		Body WorkspaceResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "workspace.update"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		w, err := e.UpdateWorkspace(ctx, workspaceID, input.Body.Name, input.Body.Status, input.Body.Description, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkspaceResponse `json:"body"`
		}{Body: workspaceResponse(w)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-workspace",
		Method:      http.MethodDelete,
		Path:        "/workspaces/{workspace_id}",
		Summary:     "Delete workspace",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
	}) (*struct{}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "workspace.delete"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteWorkspace(ctx, workspaceID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-workspace-config",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/config",
		Summary:     "Get workspace config",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
	}) (*struct {
		Body WorkspaceConfigResponse `json:"body"`
	}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "workspace.config.read"); err != nil {
			return nil, handleError(err)
		}
		cfg, err := e.Repo.GetWorkspaceConfig(ctx, workspaceID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkspaceConfigResponse `json:"body"`
		}{Body: configResponse(cfg)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "put-workspace-config",
		Method:      http.MethodPut,
		Path:        "/workspaces/{workspace_id}/config",
		Summary:     "Replace workspace config",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string        `path:"workspace_id"`
		Body        config.Config `json:"body"`
	}) (*struct {
		Body WorkspaceConfigResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "workspace.config.write"); err != nil {
			return nil, handleError(err)
		}
		cfg := input.Body
		if err := cfg.Validate(); err != nil {
			return nil, handleError(err)
		}
		if _, err := e.Repo.GetWorkspace(ctx, workspaceID); err != nil {
			return nil, handleError(err)
		}
		if err := e.Repo.UpsertWorkspaceConfig(ctx, workspaceID, &cfg); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WorkspaceConfigResponse `json:"body"`
		}{Body: configResponse(&cfg)}, nil
	})
}

func registerRoles(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-role",
		Method:        http.MethodPost,
		Path:          "/workspaces/{workspace_id}/roles",
		Summary:       "Create design role",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string            `path:"workspace_id"`
		Body        CreateRoleRequest `json:"body"`
	}) (*struct {
		Body RoleResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.Title == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "title is required", nil)
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.RoleOptions{
			WorkspaceID:      workspaceID,
			Title:            input.Body.Title,
			PrimaryType:      input.Body.PrimaryType,
			SecondaryType:    input.Body.SecondaryType,
			Owns:             ownsFromRequest(input.Body.Owns),
			DoesNotOwn:       input.Body.DoesNotOwn,
			OverseesStageIDs: input.Body.OverseesStageIDs,
			SetOwns:          len(input.Body.Owns) > 0,
			SetDoesNotOwn:    len(input.Body.DoesNotOwn) > 0,
			SetOversees:      len(input.Body.OverseesStageIDs) > 0,
			ActorID:          actorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		r, err := e.CreateRole(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RoleResponse `json:"body"`
		}{Body: roleResponse(r)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-roles",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/roles",
		Summary:     "List design roles",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
	}) (*struct {
		Body []RoleResponse `json:"body"`
	}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.read"); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListRoles(ctx, workspaceID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]RoleResponse, 0, len(items))
		for _, r := range items {
			res = append(res, roleResponse(r))
		}
		return &struct {
			Body []RoleResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-role",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/roles/{role_id}",
		Summary:     "Get design role",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		RoleID      string `path:"role_id"`
	}) (*struct {
		Body RoleResponse `json:"body"`
	}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.read"); err != nil {
			return nil, handleError(err)
		}
		r, err := e.Repo.GetRole(ctx, input.RoleID)
		if err != nil {
			return nil, handleError(err)
		}
		if !workspaceMatches(workspaceID, r.WorkspaceID) {
			return nil, handleError(repo.ErrNotFound)
		}
		return &struct {
			Body RoleResponse `json:"body"`
		}{Body: roleResponse(r)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-role",
		Method:      http.MethodPatch,
		Path:        "/workspaces/{workspace_id}/roles/{role_id}",
		Summary:     "Update design role",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string            `path:"workspace_id"`
		RoleID      string            `path:"role_id"`
		Body        UpdateRoleRequest `json:"body"`
	}) (*struct {
		Body RoleResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.RoleOptions{
			ID:            input.RoleID,
			WorkspaceID:   workspaceID,
			PrimaryType:   input.Body.PrimaryType,
			SecondaryType: input.Body.SecondaryType,
			ActorID:       actorID,
		}
		if input.Body.Title != nil {
			opts.Title = *input.Body.Title
		}
		if input.Body.Owns != nil {
			opts.Owns = ownsFromRequest(*input.Body.Owns)
			opts.SetOwns = true
		}
		if input.Body.DoesNotOwn != nil {
			opts.DoesNotOwn = *input.Body.DoesNotOwn
			opts.SetDoesNotOwn = true
		}
		if input.Body.OverseesStageIDs != nil {
			opts.OverseesStageIDs = *input.Body.OverseesStageIDs
			opts.SetOversees = true
		}
		r, err := e.UpdateRole(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body RoleResponse `json:"body"`
		}{Body: roleResponse(r)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-role",
		Method:      http.MethodDelete,
		Path:        "/workspaces/{workspace_id}/roles/{role_id}",
		Summary:     "Delete design role",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		RoleID      string `path:"role_id"`
	}) (*struct{}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteRole(ctx, input.RoleID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerStages(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-stage",
		Method:        http.MethodPost,
		Path:          "/workspaces/{workspace_id}/stages",
		Summary:       "Create pipeline stage",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string             `path:"workspace_id"`
		Body        CreateStageRequest `json:"body"`
	}) (*struct {
		Body StageResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		id := ""
		if input.Body.ID != nil {
			id = *input.Body.ID
		}
		s, err := e.CreateStage(ctx, workspaceID, id, input.Body.Name, input.Body.SortOrder, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StageResponse `json:"body"`
		}{Body: stageResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-stages",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/stages",
		Summary:     "List pipeline stages",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
	}) (*struct {
		Body []StageResponse `json:"body"`
	}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.read"); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListStages(ctx, workspaceID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]StageResponse, 0, len(items))
		for _, s := range items {
			res = append(res, stageResponse(s))
		}
		return &struct {
			Body []StageResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-stage",
		Method:      http.MethodPatch,
		Path:        "/workspaces/{workspace_id}/stages/{stage_id}",
		Summary:     "Update pipeline stage",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string             `path:"workspace_id"`
		StageID     string             `path:"stage_id"`
		Body        UpdateStageRequest `json:"body"`
	}) (*struct {
		Body StageResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.UpdateStage(ctx, input.StageID, input.Body.Name, input.Body.SortOrder, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StageResponse `json:"body"`
		}{Body: stageResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-stage",
		Method:      http.MethodDelete,
		Path:        "/workspaces/{workspace_id}/stages/{stage_id}",
		Summary:     "Delete pipeline stage",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		StageID     string `path:"stage_id"`
	}) (*struct{}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteStage(ctx, input.StageID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "assign-stage-role",
		Method:        http.MethodPost,
		Path:          "/workspaces/{workspace_id}/stages/{stage_id}/roles",
		Summary:       "Staff a stage with a role",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string            `path:"workspace_id"`
		StageID     string            `path:"stage_id"`
		Body        AssignRoleRequest `json:"body"`
	}) (*struct {
		Body StageRoleResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.RoleID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "role_id is required", nil)
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.AssignStageRole(ctx, input.StageID, input.Body.RoleID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body StageRoleResponse `json:"body"`
		}{Body: StageRoleResponse{StageID: input.StageID, RoleID: input.Body.RoleID}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unassign-stage-role",
		Method:      http.MethodDelete,
		Path:        "/workspaces/{workspace_id}/stages/{stage_id}/roles/{role_id}",
		Summary:     "Remove a role from a stage",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		StageID     string `path:"stage_id"`
		RoleID      string `path:"role_id"`
	}) (*struct{}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.UnassignStageRole(ctx, input.StageID, input.RoleID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerHandoffs(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-handoff",
		Method:        http.MethodPost,
		Path:          "/workspaces/{workspace_id}/handoffs",
		Summary:       "Create stage handoff",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string               `path:"workspace_id"`
		Body        CreateHandoffRequest `json:"body"`
	}) (*struct {
		Body HandoffResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.HandoffOptions{
			WorkspaceID: workspaceID,
			FromStageID: input.Body.FromStageID,
			ToStageID:   input.Body.ToStageID,
			SLA:         input.Body.SLA,
			Tensions:    input.Body.Tensions,
			ActorID:     actorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		h, err := e.CreateHandoff(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body HandoffResponse `json:"body"`
		}{Body: handoffResponse(h)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-handoffs",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/handoffs",
		Summary:     "List stage handoffs",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
	}) (*struct {
		Body []HandoffResponse `json:"body"`
	}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.read"); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListHandoffs(ctx, workspaceID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]HandoffResponse, 0, len(items))
		for _, h := range items {
			res = append(res, handoffResponse(h))
		}
		return &struct {
			Body []HandoffResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-handoff",
		Method:      http.MethodPatch,
		Path:        "/workspaces/{workspace_id}/handoffs/{handoff_id}",
		Summary:     "Update stage handoff",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string               `path:"workspace_id"`
		HandoffID   string               `path:"handoff_id"`
		Body        UpdateHandoffRequest `json:"body"`
	}) (*struct {
		Body HandoffResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		var tensions []string
		setTensions := false
		if input.Body.Tensions != nil {
			tensions = *input.Body.Tensions
			setTensions = true
		}
		h, err := e.UpdateHandoff(ctx, input.HandoffID, input.Body.SLA, tensions, setTensions, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body HandoffResponse `json:"body"`
		}{Body: handoffResponse(h)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-handoff",
		Method:      http.MethodDelete,
		Path:        "/workspaces/{workspace_id}/handoffs/{handoff_id}",
		Summary:     "Delete stage handoff",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		HandoffID   string `path:"handoff_id"`
	}) (*struct{}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteHandoff(ctx, input.HandoffID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerCategories(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-category",
		Method:        http.MethodPost,
		Path:          "/workspaces/{workspace_id}/categories",
		Summary:       "Create activity category",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string                `path:"workspace_id"`
		Body        CreateCategoryRequest `json:"body"`
	}) (*struct {
		Body CategoryResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.CategoryOptions{
			WorkspaceID:   workspaceID,
			Name:          input.Body.Name,
			IdealTypes:    input.Body.IdealTypes,
			FitReason:     input.Body.FitReason,
			SetIdealTypes: len(input.Body.IdealTypes) > 0,
			ActorID:       actorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		c, err := e.CreateCategory(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CategoryResponse `json:"body"`
		}{Body: categoryResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-categories",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/categories",
		Summary:     "List activity categories",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
	}) (*struct {
		Body []CategoryResponse `json:"body"`
	}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.read"); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListCategories(ctx, workspaceID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]CategoryResponse, 0, len(items))
		for _, c := range items {
			res = append(res, categoryResponse(c))
		}
		return &struct {
			Body []CategoryResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-category",
		Method:      http.MethodPatch,
		Path:        "/workspaces/{workspace_id}/categories/{category_id}",
		Summary:     "Update activity category",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string                `path:"workspace_id"`
		CategoryID  string                `path:"category_id"`
		Body        UpdateCategoryRequest `json:"body"`
	}) (*struct {
		Body CategoryResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.CategoryOptions{
			ID:          input.CategoryID,
			WorkspaceID: workspaceID,
			FitReason:   input.Body.FitReason,
			ActorID:     actorID,
		}
		if input.Body.Name != nil {
			opts.Name = *input.Body.Name
		}
		if input.Body.IdealTypes != nil {
			opts.IdealTypes = *input.Body.IdealTypes
			opts.SetIdealTypes = true
		}
		c, err := e.UpdateCategory(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body CategoryResponse `json:"body"`
		}{Body: categoryResponse(c)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-category",
		Method:      http.MethodDelete,
		Path:        "/workspaces/{workspace_id}/categories/{category_id}",
		Summary:     "Delete activity category",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		CategoryID  string `path:"category_id"`
	}) (*struct{}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteCategory(ctx, input.CategoryID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerActivities(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-activity",
		Method:        http.MethodPost,
		Path:          "/workspaces/{workspace_id}/activities",
		Summary:       "Create activity",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string                `path:"workspace_id"`
		Body        CreateActivityRequest `json:"body"`
	}) (*struct {
		Body ActivityResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.Name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "name is required", nil)
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.ActivityOptions{
			WorkspaceID: workspaceID,
			Name:        input.Body.Name,
			CategoryID:  input.Body.CategoryID,
			StageID:     input.Body.StageID,
			ActorID:     actorID,
		}
		if input.Body.ID != nil {
			opts.ID = *input.Body.ID
		}
		a, err := e.CreateActivity(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActivityResponse `json:"body"`
		}{Body: activityResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-activities",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/activities",
		Summary:     "List activities",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
	}) (*struct {
		Body []ActivityResponse `json:"body"`
	}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.read"); err != nil {
			return nil, handleError(err)
		}
		items, err := e.Repo.ListActivities(ctx, workspaceID)
		if err != nil {
			return nil, handleError(err)
		}
		res := make([]ActivityResponse, 0, len(items))
		for _, a := range items {
			res = append(res, activityResponse(a))
		}
		return &struct {
			Body []ActivityResponse `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-activity",
		Method:      http.MethodPatch,
		Path:        "/workspaces/{workspace_id}/activities/{activity_id}",
		Summary:     "Update activity",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string                `path:"workspace_id"`
		ActivityID  string                `path:"activity_id"`
		Body        UpdateActivityRequest `json:"body"`
	}) (*struct {
		Body ActivityResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.ActivityOptions{
			ID:          input.ActivityID,
			WorkspaceID: workspaceID,
			CategoryID:  input.Body.CategoryID,
			StageID:     input.Body.StageID,
			ActorID:     actorID,
		}
		if input.Body.Name != nil {
			opts.Name = *input.Body.Name
		}
		a, err := e.UpdateActivity(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActivityResponse `json:"body"`
		}{Body: activityResponse(a)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-activity",
		Method:      http.MethodDelete,
		Path:        "/workspaces/{workspace_id}/activities/{activity_id}",
		Summary:     "Delete activity",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		ActivityID  string `path:"activity_id"`
	}) (*struct{}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteActivity(ctx, input.ActivityID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "assign-activity-role",
		Method:        http.MethodPost,
		Path:          "/workspaces/{workspace_id}/activities/{activity_id}/roles",
		Summary:       "Assign an activity to a role",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string            `path:"workspace_id"`
		ActivityID  string            `path:"activity_id"`
		Body        AssignRoleRequest `json:"body"`
	}) (*struct {
		Body ActivityRoleResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		if input.Body.RoleID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "role_id is required", nil)
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.AssignActivityRole(ctx, input.ActivityID, input.Body.RoleID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ActivityRoleResponse `json:"body"`
		}{Body: ActivityRoleResponse{ActivityID: input.ActivityID, RoleID: input.Body.RoleID}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "unassign-activity-role",
		Method:      http.MethodDelete,
		Path:        "/workspaces/{workspace_id}/activities/{activity_id}/roles/{role_id}",
		Summary:     "Remove an activity from a role",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		ActivityID  string `path:"activity_id"`
		RoleID      string `path:"role_id"`
	}) (*struct{}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.UnassignActivityRole(ctx, input.ActivityID, input.RoleID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerProgressions(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "set-progression",
		Method:      http.MethodPut,
		Path:        "/workspaces/{workspace_id}/roles/{role_id}/progression",
		Summary:     "Set role growth track",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string                `path:"workspace_id"`
		RoleID      string                `path:"role_id"`
		Body        SetProgressionRequest `json:"body"`
	}) (*struct {
		Body ProgressionResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		p, err := e.SetProgression(ctx, engine.ProgressionOptions{
			RoleID:            input.RoleID,
			Track:             input.Body.Track,
			GrowthActivityIDs: input.Body.GrowthActivityIDs,
			ActorID:           actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body ProgressionResponse `json:"body"`
		}{Body: progressionResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-progression",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/roles/{role_id}/progression",
		Summary:     "Get role growth track",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		RoleID      string `path:"role_id"`
	}) (*struct {
		Body ProgressionResponse `json:"body"`
	}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.read"); err != nil {
			return nil, handleError(err)
		}
		p, err := e.Repo.GetProgression(ctx, input.RoleID)
		if err != nil {
			return nil, handleError(err)
		}
		if !workspaceMatches(workspaceID, p.WorkspaceID) {
			return nil, handleError(repo.ErrNotFound)
		}
		return &struct {
			Body ProgressionResponse `json:"body"`
		}{Body: progressionResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-progression",
		Method:      http.MethodDelete,
		Path:        "/workspaces/{workspace_id}/roles/{role_id}/progression",
		Summary:     "Clear role growth track",
		Errors: []int{
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		RoleID      string `path:"role_id"`
	}) (*struct{}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "model.write"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteProgression(ctx, input.RoleID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerDiagnostics(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "diagnose-workspace",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/diagnostics",
		Summary:     "Run workspace diagnostics",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		Focus       string `query:"focus" enum:"full,gaps,overlaps,belbin,health,boundaries,career" default:"full"`
	}) (*struct {
		Body analysis.Report `json:"body"`
	}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "diagnostics.read"); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		focus, err := analysis.ParseFocus(input.Focus)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", err.Error(), map[string]any{"focus": input.Focus})
		}
		report, err := e.Diagnose(ctx, workspaceID, focus, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body analysis.Report `json:"body"`
		}{Body: report}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
		Type        string `query:"type"`
		EntityKind  string `query:"entity_kind" enum:"workspace,role,stage,handoff,category,activity,progression,rbac"`
		EntityID    string `query:"entity_id"`
		Limit       int    `query:"limit" default:"50"`
		Cursor      string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := requirePermission(ctx, e, workspaceID, "events.read"); err != nil {
			return nil, handleError(err)
		}
		limit := normalizeLimit(input.Limit)
		var cursorID int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			cursorID = parsed
		}
		items, err := e.Repo.LatestEventsFrom(ctx, limit+1, cursorID, workspaceID, input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			resp.NextCursor = fmt.Sprintf("%d", items[limit].ID)
			items = items[:limit]
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func registerRBAC(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "whoami",
		Method:      http.MethodGet,
		Path:        "/workspaces/{workspace_id}/me/permissions",
		Summary:     "Current actor permissions",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string `path:"workspace_id"`
	}) (*struct {
		Body WhoAmIResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		who, err := e.WhoAmI(ctx, workspaceID, principal.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body WhoAmIResponse `json:"body"`
		}{Body: WhoAmIResponse{
			ActorID:     who.ActorID,
			OrgID:       principal.OrgID,
			Roles:       nonNilSlice(who.Roles),
			Permissions: nonNilSlice(who.Permissions),
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "grant-role",
		Method:      http.MethodPost,
		Path:        "/workspaces/{workspace_id}/rbac/roles/grant",
		Summary:     "Grant access role",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string            `path:"workspace_id"`
		Body        RoleChangeRequest `json:"body"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := e.GrantRole(ctx, workspaceID, actorID, input.Body.ActorID, input.Body.RoleID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-role",
		Method:      http.MethodPost,
		Path:        "/workspaces/{workspace_id}/rbac/roles/revoke",
		Summary:     "Revoke access role",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		WorkspaceID string            `path:"workspace_id"`
		Body        RoleChangeRequest `json:"body"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		workspaceID := workspaceFromPathOrHeader(ctx, input.WorkspaceID, e)
		if err := e.RevokeRole(ctx, workspaceID, actorID, input.Body.ActorID, input.Body.RoleID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors: []int{
			http.StatusUnauthorized,
		},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body WhoAmIResponse `json:"body"`
	}, error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		roles := principal.Roles
		perms := principal.Permissions
		if len(perms) == 0 && e.Config != nil {
			if who, err := e.WhoAmI(ctx, e.Config.Workspace.ID, principal.ActorID); err == nil {
				if len(roles) == 0 {
					roles = who.Roles
				}
				perms = who.Permissions
			}
		}
		return &struct {
			Body WhoAmIResponse `json:"body"`
		}{Body: WhoAmIResponse{
			ActorID:     principal.ActorID,
			OrgID:       principal.OrgID,
			Roles:       nonNilSlice(roles),
			Permissions: nonNilSlice(perms),
		}}, nil
	})
}

func registerDevAuth(api huma.API, e engine.Engine, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actor := strings.TrimSpace(input.Body.ActorID)
		org := strings.TrimSpace(input.Body.OrgID)
		if actor == "" || org == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id and org_id are required", nil)
		}
		token, err := signDevToken(authCfg.JWTSecret, actor, org, input.Body.Roles, input.Body.Scopes)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	req, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok || req == nil {
		return nil
	}
	data, _ := io.ReadAll(req.Body)
	return data
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}

func stringOrEmpty(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func workspaceFromPathOrHeader(ctx context.Context, pathWorkspaceID string, e engine.Engine) string {
	if pathWorkspaceID != "" {
		return pathWorkspaceID
	}
	fallback := ""
	if e.Config != nil {
		fallback = e.Config.Workspace.ID
	}
	if req, ok := ctx.Value(requestKey{}).(*http.Request); ok && req != nil {
		if v := strings.TrimSpace(req.Header.Get("X-Workspace-Id")); v != "" {
			return v
		}
	}
	return fallback
}

func workspaceMatches(expected, actual string) bool {
	if expected == "" {
		return true
	}
	return expected == actual
}
