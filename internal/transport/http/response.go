package httptransport

import "github.com/gin-gonic/gin"

// DetailResponse is the error body for every REST failure: a single
// human-readable detail string.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// RespondDetail writes an error response with the given status.
func RespondDetail(c *gin.Context, httpStatus int, detail string) {
	c.JSON(httpStatus, DetailResponse{Detail: detail})
}
