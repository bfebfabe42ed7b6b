package controllers

import (
	"errors"
	"net/http"

	"firmdesk/config"
	"firmdesk/errs"

	restful "github.com/emicklei/go-restful/v3"
)

// Envelope is the uniform response shape: {status:true, data} on success,
// {status:false, message} on failure.
type Envelope struct {
	Status  bool        `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

func writeData(response *restful.Response, data interface{}) {
	_ = response.WriteHeaderAndJson(http.StatusOK, Envelope{Status: true, Data: data}, restful.MIME_JSON)
}

func writeOK(response *restful.Response) {
	_ = response.WriteHeaderAndJson(http.StatusOK, Envelope{Status: true}, restful.MIME_JSON)
}

// writeError maps the error taxonomy to the envelope. Internal exception
// detail is only included when the deployment is explicitly flagged as a
// development environment.
func writeError(response *restful.Response, err error) {
	status := errs.HTTPStatus(err)
	message := err.Error()

	var e *errs.Error
	if status == http.StatusInternalServerError {
		message = "Internal Server Error"
		if config.IsDevelopment() && errors.As(err, &e) {
			message = e.Error()
		}
	}

	_ = response.WriteHeaderAndJson(status, Envelope{Status: false, Message: message}, restful.MIME_JSON)
}
