package upload

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/t2bot/sample-repo/api"
	"github.com/t2bot/sample-repo/archives"
	"github.com/t2bot/sample-repo/common"
	"github.com/t2bot/sample-repo/common/rcontext"
	"github.com/t2bot/sample-repo/pipelines/pipeline_ingest"
	"github.com/t2bot/sample-repo/types"
)

type Handlers struct {
	ingestor *pipeline_ingest.Ingestor
}

func NewHandlers(ingestor *pipeline_ingest.Ingestor) *Handlers {
	return &Handlers{ingestor: ingestor}
}

func (h *Handlers) UploadFile(r *http.Request, rctx rcontext.RequestContext) interface{} {
	return h.uploadSingle(r, rctx, common.FileTypeFile)
}

func (h *Handlers) UploadMemory(r *http.Request, rctx rcontext.RequestContext) interface{} {
	return h.uploadSingle(r, rctx, common.FileTypeMemory)
}

func (h *Handlers) uploadSingle(r *http.Request, rctx rcontext.RequestContext, fileType common.FileType) interface{} {
	form, err := readMultipart(rctx, r)
	if err != nil {
		return stagingErrorResponse(rctx, err)
	}
	defer form.Cleanup(rctx)

	files := form.files["file"]
	if len(files) == 0 {
		return api.FieldErrorsResponse{"file": {common.ErrMissingPayload.Error()}}
	}
	if len(files) > 1 {
		return api.FieldErrorsResponse{"file": {"only one file may be uploaded"}}
	}

	raw := make(map[string]interface{}, len(form.values))
	for k, v := range form.values {
		raw[k] = v
	}
	meta, err := types.MetadataFromObject(raw)
	if err != nil {
		return api.FieldErrorsResponse{"data": {err.Error()}}
	}

	rctx = rctx.LogWithFields(logrus.Fields{"uploadName": files[0].Filename})
	record, err := h.ingestor.Execute(rctx, files[0].Path, files[0].Filename, fileType, meta)
	if err != nil {
		return ingestErrorResponse(rctx, err)
	}
	return &api.SampleResponse{Sample: record.ToSample()}
}

func (h *Handlers) UploadFiles(r *http.Request, rctx rcontext.RequestContext) interface{} {
	form, err := readMultipart(rctx, r)
	if err != nil {
		return stagingErrorResponse(rctx, err)
	}
	defer form.Cleanup(rctx)

	var metas []*types.Metadata
	if data, ok := form.values["data"]; ok && data != "" {
		objects := make([]map[string]interface{}, 0)
		if err = json.Unmarshal([]byte(data), &objects); err != nil {
			return api.FieldErrorsResponse{"data": {"must be a JSON array of objects"}}
		}
		metas = make([]*types.Metadata, len(objects))
		for i, o := range objects {
			if o == nil {
				continue
			}
			if metas[i], err = types.MetadataFromObject(o); err != nil {
				return api.FieldErrorsResponse{"data": {err.Error()}}
			}
		}
	}

	parts := form.files["files[]"]
	staged := make([]pipeline_ingest.StagedFile, len(parts))
	for i, p := range parts {
		staged[i] = pipeline_ingest.StagedFile{Path: p.Path, UploadName: p.Filename}
	}

	records, err := h.ingestor.ExecuteBatch(rctx, staged, metas)
	if err != nil {
		return ingestErrorResponse(rctx, err)
	}
	samples := make([]*types.Sample, len(records))
	for i, record := range records {
		samples[i] = record.ToSample()
	}
	return &api.SamplesResponse{Samples: samples}
}

func stagingErrorResponse(rctx rcontext.RequestContext, err error) interface{} {
	if errors.Is(err, common.ErrPayloadTooLarge) {
		return api.RequestTooLarge()
	}
	if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
		return api.Invalid("expected a multipart/form-data body")
	}
	rctx.Log.Warn("Error reading upload: ", err)
	return api.BadRequest("unable to read request body")
}

func ingestErrorResponse(rctx rcontext.RequestContext, err error) interface{} {
	var ingestErr *pipeline_ingest.IngestError
	if !errors.As(err, &ingestErr) {
		rctx.Log.Error("Unexpected error ingesting sample: ", err)
		sentry.CaptureException(err)
		return api.InternalServerError("Unexpected Error")
	}

	switch ingestErr.Kind {
	case pipeline_ingest.KindValidation:
		return api.FieldErrorsResponse(ingestErr.Fields)
	case pipeline_ingest.KindCountMismatch:
		return api.BadRequest(ingestErr.Error())
	case pipeline_ingest.KindExtraction:
		reason := "unknown"
		var extErr *archives.ExtractionError
		if errors.As(err, &extErr) {
			reason = extErr.Reason()
		}
		return api.ExtractionFailed(reason, ingestErr.Error())
	case pipeline_ingest.KindDuplicate:
		res := &api.ConflictResponse{}
		if ingestErr.Existing != nil {
			res.Sample = ingestErr.Existing.ToSample()
		}
		return res
	}

	rctx.Log.Error("Error storing sample: ", err)
	return api.InternalServerError(err.Error())
}
