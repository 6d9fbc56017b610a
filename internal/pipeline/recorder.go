package pipeline

import (
	"net/http"
	"time"

	"github.com/ncecere/image_studio/internal/apierr"
	"github.com/ncecere/image_studio/internal/models"
)

const (
	OperationChat     = "chat"
	OperationEdit     = "edit"
	OperationGenerate = "generate"
)

// Recorder receives upstream timings and token usage.
type Recorder interface {
	RecordUpstream(operation string, status int, duration time.Duration)
	RecordTokens(operation string, usage models.Usage)
}

type nopRecorder struct{}

func (nopRecorder) RecordUpstream(string, int, time.Duration) {}
func (nopRecorder) RecordTokens(string, models.Usage)        {}

func orNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

func upstreamStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return apierr.StatusOf(err)
}
