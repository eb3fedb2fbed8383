package apilog

// HTTP status codes the services expect.
const (
	StatusOK                  = 200
	StatusCreated             = 201
	StatusAccepted            = 202
	StatusNoContent           = 204
	StatusBadRequest          = 400
	StatusUnauthorised        = 401
	StatusForbidden           = 403
	StatusNotFound            = 404
	StatusUnprocessable       = 422
	StatusInternalServerError = 500
)
