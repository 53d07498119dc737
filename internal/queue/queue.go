package queue

import (
	"github.com/maheshrc27/postpub/internal/service"
)

type Queue struct {
	ps service.PostService
}

func NewQueue(ps service.PostService) *Queue {
	return &Queue{ps: ps}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID string `json:"post_id"`
}
