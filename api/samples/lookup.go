package samples

import (
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/api"
	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/database"
	"github.com/t2bot/sample-repo/datastores"
	"github.com/t2bot/sample-repo/fingerprint"
	"github.com/t2bot/sample-repo/pipelines/pipeline_ingest"
	"github.com/t2bot/sample-repo/types"
)

type Handlers struct {
	index pipeline_ingest.Index
}

func NewHandlers(index pipeline_ingest.Index) *Handlers {
	return &Handlers{index: index}
}

func (h *Handlers) lookup(r *http.Request, rctx rcontext.RequestContext) ([]*database.DbSample, interface{}) {
	sha256hash := mux.Vars(r)["sha256"]
	if !fingerprint.IsDigest(sha256hash) {
		return nil, api.BadRequest("not a sha256 digest")
	}

	records, err := h.index.GetByHash(rctx, sha256hash)
	if err != nil {
		rctx.Log.Error("Error looking up sample: ", err)
		sentry.CaptureException(err)
		return nil, api.InternalServerError("Unexpected Error")
	}
	if len(records) == 0 {
		return nil, api.NotFoundError()
	}
	return records, nil
}

// GetSamples lists every record stored for a digest.
func (h *Handlers) GetSamples(r *http.Request, rctx rcontext.RequestContext) interface{} {
	records, errRes := h.lookup(r, rctx)
	if errRes != nil {
		return errRes
	}
	samples := make([]*types.Sample, len(records))
	for i, record := range records {
		samples[i] = record.ToSample()
	}
	return &api.DoNotCacheResponse{Payload: &api.SamplesResponse{Samples: samples}}
}

func (h *Handlers) DownloadSample(r *http.Request, rctx rcontext.RequestContext) interface{} {
	fileType, err := common.ParseFileType(mux.Vars(r)["fileType"])
	if err != nil {
		return api.BadRequest(err.Error())
	}
	records, errRes := h.lookup(r, rctx)
	if errRes != nil {
		return errRes
	}

	var record *database.DbSample
	for _, rec := range records {
		if rec.FileType == fileType {
			record = rec
			break
		}
	}
	if record == nil {
		return api.NotFoundError()
	}

	rctx = rctx.LogWithFields(logrus.Fields{"sha256": record.Sha256Digest, "datastoreId": record.DatastoreId})
	ds, ok := datastores.Get(rctx, record.DatastoreId)
	if !ok {
		rctx.Log.Error("Sample refers to a datastore which is not configured")
		return api.InternalServerError("datastore not available")
	}
	stream, err := datastores.Download(rctx, ds, record.Location)
	if err != nil {
		rctx.Log.Error("Error opening sample: ", err)
		sentry.CaptureException(err)
		return api.InternalServerError("Unexpected Error")
	}

	return &api.DownloadResponse{
		ContentType: "application/octet-stream",
		Filename:    record.Sha256Digest,
		SizeBytes:   record.SizeBytes,
		Data:        stream,
	}
}
