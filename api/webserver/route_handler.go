package webserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sebest/xff"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/api"
	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/metrics"
)

type requestCounter struct {
	lastId uint64
}

func (c *requestCounter) GetNextId() string {
	return "REQ-" + strconv.FormatUint(atomic.AddUint64(&c.lastId, 1), 10)
}

type handler struct {
	h          func(r *http.Request, ctx rcontext.RequestContext) interface{}
	action     string
	reqCounter *requestCounter
}

func (h handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raddr := xff.GetRemoteAddr(r)
	host, _, err := net.SplitHostPort(raddr)
	if err != nil {
		host = raddr
	}
	r.RemoteAddr = host

	contextLog := logrus.WithFields(logrus.Fields{
		"method":        r.Method,
		"resource":      r.URL.Path,
		"contentType":   r.Header.Get("Content-Type"),
		"contentLength": r.ContentLength,
		"requestId":     h.reqCounter.GetNextId(),
		"remoteAddr":    r.RemoteAddr,
	})
	contextLog.Info("Received request")

	w.Header().Set("Server", "sample-repo")

	rctx := rcontext.New(r.Context(), contextLog, *config.Get()).WithRequest(r)
	r = r.WithContext(rctx)

	metrics.HttpRequests.With(prometheus.Labels{
		"action": h.action,
		"method": r.Method,
	}).Inc()
	res := h.h(r, rctx)
	if res == nil {
		res = &api.EmptyResponse{}
	}

	if result, ok := res.(*api.DoNotCacheResponse); ok {
		w.Header().Set("Cache-Control", "no-store")
		res = result.Payload
	}

	if download, ok := res.(*api.DownloadResponse); ok {
		h.recordResponse(r, http.StatusOK)
		contextLog.Infof("Replying with download of %d bytes", download.SizeBytes)
		w.Header().Set("Content-Type", download.ContentType)
		w.Header().Set("Content-Disposition", "attachment; filename="+download.Filename)
		if download.SizeBytes > 0 {
			w.Header().Set("Content-Length", fmt.Sprint(download.SizeBytes))
		}
		defer download.Data.Close()
		writeResponseData(w, download.Data, download.SizeBytes)
		return // Prevent sending conflicting responses
	}

	contextLog.Infof("Replying with result: %T %+v", res, res)
	statusCode := statusCodeFor(res)
	h.recordResponse(r, statusCode)

	// Order is important: Set headers before sending responses
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	encoder := json.NewEncoder(w)
	if err := encoder.Encode(res); err != nil {
		contextLog.Warn("Error writing response: ", err)
	}
}

func (h handler) recordResponse(r *http.Request, statusCode int) {
	metrics.HttpResponses.With(prometheus.Labels{
		"action":     h.action,
		"method":     r.Method,
		"statusCode": strconv.Itoa(statusCode),
	}).Inc()
}

func statusCodeFor(res interface{}) int {
	switch result := res.(type) {
	case *api.ErrorResponse:
		switch result.InternalCode {
		case common.ErrCodeNotFound:
			return http.StatusNotFound
		case common.ErrCodeTooLarge:
			return http.StatusRequestEntityTooLarge
		case common.ErrCodeBadRequest:
			return http.StatusBadRequest
		case common.ErrCodeMethodNotAllowed:
			return http.StatusMethodNotAllowed
		case common.ErrCodeInvalid, common.ErrCodeExtraction:
			return http.StatusUnprocessableEntity
		case common.ErrCodeConflict:
			return http.StatusConflict
		default: // Treat as unknown (a generic server error)
			return http.StatusInternalServerError
		}
	case api.FieldErrorsResponse:
		return http.StatusUnprocessableEntity
	case *api.ConflictResponse:
		return http.StatusConflict
	}
	return http.StatusOK
}

func writeResponseData(w http.ResponseWriter, s io.Reader, expectedBytes int64) {
	b, err := io.Copy(w, s)
	if err != nil {
		// Should only blow up this request
		panic(err)
	}
	if expectedBytes > 0 && b != expectedBytes {
		// Should only blow up this request
		panic(errors.New("mismatch transfer size"))
	}
}
