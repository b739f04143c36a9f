package webserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/api"
	"github.com/t2bot/sample-repo/api/samples"
	"github.com/t2bot/sample-repo/api/upload"
	"github.com/t2bot/sample-repo/common/config"
	"github.com/t2bot/sample-repo/pipelines/pipeline_ingest"
)

type route struct {
	path    string
	method  string
	handler handler
}

var srv *http.Server
var waitGroup = &sync.WaitGroup{}
var lastIngestor *pipeline_ingest.Ingestor

func buildRouter(ingestor *pipeline_ingest.Ingestor) http.Handler {
	rtr := mux.NewRouter()
	counter := &requestCounter{}

	uploads := upload.NewHandlers(ingestor)
	lookups := samples.NewHandlers(ingestor.Index)

	routes := []route{
		{"/upload/file", "POST", handler{uploads.UploadFile, "upload_file", counter}},
		{"/upload/memory", "POST", handler{uploads.UploadMemory, "upload_memory", counter}},
		{"/upload/files", "POST", handler{uploads.UploadFiles, "upload_files", counter}},
		{"/samples/{sha256:[a-fA-F0-9]+}", "GET", handler{lookups.GetSamples, "get_samples", counter}},
		{"/samples/{sha256:[a-fA-F0-9]+}/{fileType:[a-z]+}/download", "GET", handler{lookups.DownloadSample, "download_sample", counter}},
	}

	for _, route := range routes {
		logrus.Debug("Registering route: " + route.method + " " + route.path)
		rtr.Handle(route.path, route.handler).Methods(route.method)

		// Trailing slashes match the same routes
		rtr.Handle(route.path+"/", route.handler).Methods(route.method)
	}

	healthzHandler := handler{api.GetHealthz, "healthz", counter}
	rtr.Handle("/healthz", healthzHandler).Methods("GET", "HEAD")

	rtr.NotFoundHandler = handler{api.NotFoundHandler, "not_found", counter}
	rtr.MethodNotAllowedHandler = handler{api.MethodNotAllowedHandler, "method_not_allowed", counter}

	return rtr
}

func Init(ingestor *pipeline_ingest.Ingestor) *sync.WaitGroup {
	if srv == nil && lastIngestor == nil {
		waitGroup.Add(1)
	}
	lastIngestor = ingestor
	address := net.JoinHostPort(config.Get().General.BindAddress, strconv.Itoa(config.Get().General.Port))

	// Note: we bind Sentry here to ensure we capture *everything*
	sentryHandler := sentryhttp.New(sentryhttp.Options{})
	srv = &http.Server{Addr: address, Handler: sentryHandler.Handle(buildRouter(ingestor))}
	server := srv

	go func() {
		//goland:noinspection HttpUrlsUsage
		logrus.WithField("address", address).Info("Started up. Listening at http://" + address)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			sentry.CaptureException(err)
			logrus.Fatal(err)
		}
	}()

	return waitGroup
}

func Reload() {
	// Stop the server first, keeping the wait group held
	shutdown()

	// Reload the web server, ignoring the wait group (because we don't care to wait here)
	Init(lastIngestor)
}

func Stop() {
	if shutdown() {
		waitGroup.Done()
	}
}

func shutdown() bool {
	if srv == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		panic(err)
	}
	srv = nil
	return true
}
