package rcontext

import (
	"context"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/common/config"
)

// RequestContext carries the logger and the configuration snapshot for one unit of work. The
// config is copied in so a reload mid-request does not change behaviour partway through.
type RequestContext struct {
	context.Context

	Log     *logrus.Entry
	Config  config.MainRepoConfig
	Request *http.Request
}

// Initial is the context for work which did not come from a request (startup, CLI tools).
func Initial() RequestContext {
	return New(context.Background(), logrus.WithFields(logrus.Fields{"nocontext": true}), *config.Get())
}

func New(ctx context.Context, log *logrus.Entry, cfg config.MainRepoConfig) RequestContext {
	return RequestContext{Context: ctx, Log: log, Config: cfg}
}

func (c RequestContext) WithRequest(r *http.Request) RequestContext {
	c.Request = r
	return c
}

func (c RequestContext) LogWithFields(fields logrus.Fields) RequestContext {
	c.Log = c.Log.WithFields(fields)
	return c
}
