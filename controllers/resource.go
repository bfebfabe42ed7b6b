package controllers

import (
	"net/http"
	"strconv"

	"firmdesk/auth"
	"firmdesk/database"
	"firmdesk/errs"
	"firmdesk/repositories"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
)

// ResourceDefs lists the CRUD resources exposed by the generic contract.
// Each follows the same shape: list (soft-deleted rows excluded), create
// (duplicate per uniqueness tuple rejected), update, soft delete.
var ResourceDefs = []repositories.ResourceDef{
	{
		Name:     "client",
		Table:    "clients",
		Fields:   []string{"name", "email", "phone", "client_type_id"},
		UniqueBy: []string{"name", "email"},
	},
	{
		Name:     "task",
		Table:    "tasks",
		Fields:   []string{"title", "description", "client_id", "assigned_to", "due_date"},
		UniqueBy: []string{"title", "client_id"},
	},
	{
		Name:     "ticket",
		Table:    "tickets",
		Fields:   []string{"subject", "detail", "client_id", "raised_by"},
		UniqueBy: []string{"subject", "client_id"},
	},
	{
		Name:     "timesheet",
		Table:    "timesheets",
		Fields:   []string{"employee_id", "task_id", "work_date", "hours", "notes"},
		UniqueBy: []string{"employee_id", "task_id", "work_date"},
	},
}

// ResourceController serves one CRUD resource with the generic contract.
type ResourceController struct {
	registry *database.Registry
	def      repositories.ResourceDef
}

// NewResourceController creates a controller for one resource definition.
func NewResourceController(registry *database.Registry, def repositories.ResourceDef) *ResourceController {
	return &ResourceController{registry: registry, def: def}
}

// RegisterRoutes sets up list/create/update/delete for the resource.
func (ctl *ResourceController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/" + ctl.def.Table).Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)

	ws.Route(ws.GET("").Filter(auth.AuthFilter()).To(ctl.listHandler).
		Doc("List "+ctl.def.Table).
		Metadata(restfulspec.KeyOpenAPITags, []string{ctl.def.Table}).
		Returns(http.StatusOK, "Rows", Envelope{}))

	ws.Route(ws.POST("").Filter(auth.AuthFilter()).To(ctl.createHandler).
		Doc("Create a "+ctl.def.Name).
		Metadata(restfulspec.KeyOpenAPITags, []string{ctl.def.Table}).
		Returns(http.StatusOK, "Created", Envelope{}).
		Returns(http.StatusBadRequest, "Missing fields or duplicate", Envelope{}))

	ws.Route(ws.PUT("/{id}").Filter(auth.AuthFilter()).To(ctl.updateHandler).
		Doc("Update a "+ctl.def.Name).
		Param(ws.PathParameter("id", "Row identifier").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{ctl.def.Table}).
		Returns(http.StatusOK, "Updated", Envelope{}).
		Returns(http.StatusNotFound, "Not found", Envelope{}))

	ws.Route(ws.DELETE("/{id}").Filter(auth.AuthFilter()).To(ctl.deleteHandler).
		Doc("Soft delete a "+ctl.def.Name).
		Param(ws.PathParameter("id", "Row identifier").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{ctl.def.Table}).
		Returns(http.StatusOK, "Deleted", Envelope{}).
		Returns(http.StatusNotFound, "Not found", Envelope{}))
}

func (ctl *ResourceController) repository(request *restful.Request) (*repositories.ResourceRepository, func(), error) {
	claims, ok := auth.ClaimsFromRequest(request)
	if !ok {
		return nil, nil, errs.Unauthorizedf("Unauthorized: Cannot identify requesting user")
	}

	db, release, err := ctl.registry.Open(claims.TenantName)
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewResourceRepository(db, ctl.def), release, nil
}

func (ctl *ResourceController) listHandler(request *restful.Request, response *restful.Response) {
	repo, release, err := ctl.repository(request)
	if err != nil {
		writeError(response, err)
		return
	}
	defer release()

	filter := make(map[string]interface{})
	for key, values := range request.Request.URL.Query() {
		if len(values) > 0 {
			filter[key] = values[0]
		}
	}

	rows, err := repo.List(filter)
	if err != nil {
		writeError(response, err)
		return
	}

	writeData(response, rows)
}

func (ctl *ResourceController) createHandler(request *restful.Request, response *restful.Response) {
	fields := make(map[string]interface{})
	if err := request.ReadEntity(&fields); err != nil {
		writeError(response, errs.Validationf("Invalid request body"))
		return
	}

	repo, release, err := ctl.repository(request)
	if err != nil {
		writeError(response, err)
		return
	}
	defer release()

	id, err := repo.Create(fields)
	if err != nil {
		writeError(response, err)
		return
	}

	writeData(response, map[string]uint{"id": id})
}

func (ctl *ResourceController) updateHandler(request *restful.Request, response *restful.Response) {
	id, err := strconv.ParseUint(request.PathParameter("id"), 10, 32)
	if err != nil {
		writeError(response, errs.Validationf("Invalid ID format"))
		return
	}

	fields := make(map[string]interface{})
	if err := request.ReadEntity(&fields); err != nil {
		writeError(response, errs.Validationf("Invalid request body"))
		return
	}

	repo, release, err := ctl.repository(request)
	if err != nil {
		writeError(response, err)
		return
	}
	defer release()

	if err := repo.Update(uint(id), fields); err != nil {
		writeError(response, err)
		return
	}

	writeOK(response)
}

func (ctl *ResourceController) deleteHandler(request *restful.Request, response *restful.Response) {
	id, err := strconv.ParseUint(request.PathParameter("id"), 10, 32)
	if err != nil {
		writeError(response, errs.Validationf("Invalid ID format"))
		return
	}

	repo, release, err := ctl.repository(request)
	if err != nil {
		writeError(response, err)
		return
	}
	defer release()

	if err := repo.SoftDelete(uint(id)); err != nil {
		writeError(response, err)
		return
	}

	writeOK(response)
}
