package response

import (
	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi/proxyutil"
)

// wireError adapts an (errcode, message) pair to the coded-error shape
// proxyutil serializes into the response envelope.
type wireError struct {
	code    uint32
	message string
}

func (e wireError) Error() string { return e.message }
func (e wireError) Code() uint32  { return e.code }

// Success writes the standard success envelope around data.
func Success(c *gin.Context, data interface{}) {
	proxyutil.SuccessJson(c, data)
}

// Error writes the standard failure envelope. The HTTP status stays 200;
// clients dispatch on the embedded code.
func Error(c *gin.Context, code int, message string) {
	proxyutil.FailJson(c, 200, wireError{code: uint32(code), message: message})
}
