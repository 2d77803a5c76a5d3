package server

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// errorContentType はエラーページのContent-Type
const errorContentType = "text/html;charset=utf-8"

// errorExplanations はステータスコードごとの説明文
var errorExplanations = map[int]string{
	http.StatusBadRequest:          "Bad request syntax or unsupported method",
	http.StatusForbidden:           "Request forbidden -- authorization will not help",
	http.StatusNotFound:            "Nothing matches the given URI",
	http.StatusInternalServerError: "Server got itself in trouble",
	http.StatusNotImplemented:      "Server does not support this operation",
}

// writeError はエラーページを返す。HEADではヘッダーのみ返す
func writeError(c *gin.Context, code int, message string) {
	explain, ok := errorExplanations[code]
	if !ok {
		explain = http.StatusText(code)
	}

	var buf bytes.Buffer
	err := errorPage.Execute(&buf, struct {
		Code    int
		Message string
		Explain string
	}{code, message, explain})
	if err != nil {
		c.AbortWithStatus(code)
		return
	}

	c.Header("Content-Length", strconv.Itoa(buf.Len()))
	if c.Request.Method == http.MethodHead {
		c.Header("Content-Type", errorContentType)
		c.AbortWithStatus(code)
		return
	}
	c.Abort()
	c.Data(code, errorContentType, buf.Bytes())
}
