package controllers

import (
	"net/http"
	"strconv"

	"firmdesk/auth"
	"firmdesk/database"
	"firmdesk/errs"
	"firmdesk/repositories"
	"firmdesk/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
)

// PermissionController exposes the permission aggregation engine over HTTP.
// Every handler opens a request-scoped handle for the tenant carried by the
// authenticated identity.
type PermissionController struct {
	registry *database.Registry
}

// NewPermissionController creates a PermissionController.
func NewPermissionController(registry *database.Registry) *PermissionController {
	return &PermissionController{registry: registry}
}

type assignInput struct {
	EmployeeID   uint `json:"employee_id"`
	PermissionID uint `json:"permission_id"`
}

// RegisterRoutes sets up the permission-management routes.
func (ctl *PermissionController) RegisterRoutes(ws *restful.WebService) {
	ws.Path("/permissions").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)

	ws.Route(ws.POST("/add").Filter(auth.AuthFilter()).To(ctl.addHandler).
		Doc("Create a permission set with its menu-operation mapping").
		Metadata(restfulspec.KeyOpenAPITags, []string{"permissions"}).
		Reads(services.DefinePermissionSetInput{}).
		Returns(http.StatusOK, "Permission set created", Envelope{}).
		Returns(http.StatusBadRequest, "Missing fields or duplicate name", Envelope{}))

	ws.Route(ws.PUT("/update/{permission_id}").Filter(auth.AuthFilter()).To(ctl.updateHandler).
		Doc("Replace a permission set's metadata and operation mapping").
		Param(ws.PathParameter("permission_id", "Identifier of the permission set").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"permissions"}).
		Reads(services.DefinePermissionSetInput{}).
		Returns(http.StatusOK, "Permission set updated", Envelope{}).
		Returns(http.StatusBadRequest, "Missing fields", Envelope{}).
		Returns(http.StatusNotFound, "Permission set not found", Envelope{}))

	ws.Route(ws.POST("/assign").Filter(auth.AuthFilter()).To(ctl.assignHandler).
		Doc("Grant a permission set to an employee").
		Metadata(restfulspec.KeyOpenAPITags, []string{"permissions"}).
		Reads(assignInput{}).
		Returns(http.StatusOK, "Permission set granted", Envelope{}).
		Returns(http.StatusNotFound, "Employee or permission set not found", Envelope{}))

	ws.Route(ws.GET("/user/{user_id}").Filter(auth.AuthFilter()).To(ctl.userPermissionsHandler).
		Doc("Effective permission tree for one user").
		Param(ws.PathParameter("user_id", "Identifier of the user").DataType("integer")).
		Metadata(restfulspec.KeyOpenAPITags, []string{"permissions"}).
		Returns(http.StatusOK, "Effective permissions", Envelope{}).
		Returns(http.StatusNotFound, "User holds no grants", Envelope{}))

	ws.Route(ws.GET("/menu-operations").Filter(auth.AuthFilter()).To(ctl.menuOperationsHandler).
		Doc("Catalog of all grantable menu/operation pairs").
		Metadata(restfulspec.KeyOpenAPITags, []string{"permissions"}).
		Returns(http.StatusOK, "Grantable menu operations", Envelope{}))

	ws.Route(ws.GET("/permissions").Filter(auth.AuthFilter()).To(ctl.permissionSetsHandler).
		Doc("All permission sets with their nested grant structure").
		Metadata(restfulspec.KeyOpenAPITags, []string{"permissions"}).
		Returns(http.StatusOK, "Permission sets", Envelope{}))

	ws.Route(ws.GET("/allusers").Filter(auth.AuthFilter()).To(ctl.allUsersHandler).
		Doc("All active users of the tenant").
		Metadata(restfulspec.KeyOpenAPITags, []string{"permissions"}).
		Returns(http.StatusOK, "Users", Envelope{}))
}

// service opens the tenant handle for this request and builds the engine on
// top of it. The release function must be deferred by the caller.
func (ctl *PermissionController) service(request *restful.Request) (services.PermissionService, *auth.CustomClaims, func(), error) {
	claims, ok := auth.ClaimsFromRequest(request)
	if !ok {
		return nil, nil, nil, errs.Unauthorizedf("Unauthorized: Cannot identify requesting user")
	}

	db, release, err := ctl.registry.Open(claims.TenantName)
	if err != nil {
		return nil, nil, nil, err
	}

	repo := repositories.NewPermissionRepository(db)
	return services.NewPermissionService(repo), claims, release, nil
}

func (ctl *PermissionController) addHandler(request *restful.Request, response *restful.Response) {
	input := new(services.DefinePermissionSetInput)
	if err := request.ReadEntity(input); err != nil {
		writeError(response, errs.Validationf("Invalid request body"))
		return
	}

	svc, claims, release, err := ctl.service(request)
	if err != nil {
		writeError(response, err)
		return
	}
	defer release()

	id, err := svc.DefinePermissionSet(input, claims.UserID)
	if err != nil {
		writeError(response, err)
		return
	}

	writeData(response, map[string]uint{"permission_id": id})
}

func (ctl *PermissionController) updateHandler(request *restful.Request, response *restful.Response) {
	idStr := request.PathParameter("permission_id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		writeError(response, errs.Validationf("Invalid permission ID format"))
		return
	}

	input := new(services.DefinePermissionSetInput)
	if err := request.ReadEntity(input); err != nil {
		writeError(response, errs.Validationf("Invalid request body"))
		return
	}

	svc, _, release, err := ctl.service(request)
	if err != nil {
		writeError(response, err)
		return
	}
	defer release()

	if err := svc.UpdatePermissionSet(uint(id), input); err != nil {
		writeError(response, err)
		return
	}

	writeOK(response)
}

func (ctl *PermissionController) assignHandler(request *restful.Request, response *restful.Response) {
	input := new(assignInput)
	if err := request.ReadEntity(input); err != nil {
		writeError(response, errs.Validationf("Invalid request body"))
		return
	}
	if input.EmployeeID == 0 || input.PermissionID == 0 {
		writeError(response, errs.Validationf("mandatory fields missing"))
		return
	}

	svc, claims, release, err := ctl.service(request)
	if err != nil {
		writeError(response, err)
		return
	}
	defer release()

	if err := svc.GrantPermissionSet(input.EmployeeID, input.PermissionID, claims.UserID); err != nil {
		writeError(response, err)
		return
	}

	writeOK(response)
}

func (ctl *PermissionController) userPermissionsHandler(request *restful.Request, response *restful.Response) {
	idStr := request.PathParameter("user_id")
	userID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		writeError(response, errs.Validationf("Invalid user ID format"))
		return
	}

	svc, _, release, err := ctl.service(request)
	if err != nil {
		writeError(response, err)
		return
	}
	defer release()

	tree, err := svc.EffectivePermissions(uint(userID))
	if err != nil {
		writeError(response, err)
		return
	}

	writeData(response, tree)
}

func (ctl *PermissionController) menuOperationsHandler(request *restful.Request, response *restful.Response) {
	svc, _, release, err := ctl.service(request)
	if err != nil {
		writeError(response, err)
		return
	}
	defer release()

	list, err := svc.GrantableMenuOperations()
	if err != nil {
		writeError(response, err)
		return
	}

	writeData(response, list)
}

func (ctl *PermissionController) permissionSetsHandler(request *restful.Request, response *restful.Response) {
	svc, _, release, err := ctl.service(request)
	if err != nil {
		writeError(response, err)
		return
	}
	defer release()

	list, err := svc.PermissionSetsWithOperations()
	if err != nil {
		writeError(response, err)
		return
	}

	writeData(response, list)
}

func (ctl *PermissionController) allUsersHandler(request *restful.Request, response *restful.Response) {
	svc, _, release, err := ctl.service(request)
	if err != nil {
		writeError(response, err)
		return
	}
	defer release()

	list, err := svc.AllUsers()
	if err != nil {
		writeError(response, err)
		return
	}

	writeData(response, list)
}
