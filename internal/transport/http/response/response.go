package response

import "github.com/gin-gonic/gin"

const (
	CodeOK             = 0
	CodeBadRequest     = 40000
	CodeUnauthorized   = 40100
	CodeForbidden      = 40300
	CodeNotFound       = 40400
	CodeConflict       = 40900
	CodeTooLarge       = 41300
	CodeUnsupported    = 41500
	CodeTooMany        = 42900
	CodeInternalServer = 50000
	CodeUnavailable    = 50300

	CodeEmailExists        = 40002
	CodeCardExists         = 40003
	CodeInvalidCursor      = 40004
	CodeResetTokenInvalid  = 40005
	CodeResetTokenExpired  = 40006
	CodeInvalidSignature   = 40007
	CodeInvalidPlan        = 40008
	CodeInvalidCredentials = 40101
	CodeLawyerOnly         = 40301
	CodeChatNotFound       = 40401
	CodeMessageNotFound    = 40402
	CodeDocumentNotFound   = 40403
	CodeCaseNotFound       = 40404
	CodeFileNotFound       = 40405
	CodeUserNotFound       = 40406
	CodeAlreadySubscribed  = 40901
	CodeRateLimited        = 42901
	CodeResetTooMany       = 42902
	CodeMessageLimit       = 42903
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, APIResponse{
		Code:    CodeOK,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// Abort writes the error and stops the handler chain.
func Abort(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// ErrorWithData is Error plus a data payload, for form actions whose
// clients read a status from the body.
func ErrorWithData(c *gin.Context, httpStatus, code int, message string, data interface{}) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}
