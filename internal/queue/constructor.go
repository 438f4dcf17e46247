package queue

import (
	"github.com/maheshrc27/crosspost/internal/service"
)

type Queue struct {
	is service.IngestService
}

func NewQueue(is service.IngestService) *Queue {
	return &Queue{is: is}
}

const TaskTypeIngestFeed = "ingest:feed"

type IngestFeedPayload struct {
	Owner  string `json:"owner"`
	Source string `json:"source,omitempty"`
}
