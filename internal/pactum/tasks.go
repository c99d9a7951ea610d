package pactum

import (
	"context"
	"io"
	"net/http"
)

func (c *API) ListTasks(ctx context.Context, filter TaskFilter) ([]Task, error) {
	var out []Task
	err := c.getJSON(ctx, "tasks.list", "/tasks", taskQuery(filter), &out)
	return out, err
}

func (c *API) CreateTask(ctx context.Context, in TaskInput) (Task, error) {
	if in.Status == "" {
		in.Status = StatusBacklog
	}
	var out Task
	err := c.sendJSON(ctx, "tasks.create", http.MethodPost, "/tasks", in, &out)
	return out, err
}

func (c *API) UpdateTask(ctx context.Context, id string, in TaskInput) (Task, error) {
	var out Task
	err := c.sendJSON(ctx, "tasks.update", http.MethodPut, pathf("/tasks/%s", id), in, &out)
	return out, err
}

// MoveTask changes only the status of a task.
func (c *API) MoveTask(ctx context.Context, id, status string) error {
	return c.sendJSON(ctx, "tasks.move", http.MethodPut, pathf("/tasks/%s", id), map[string]string{"status": status}, nil)
}

func (c *API) DeleteTask(ctx context.Context, id string) error {
	return c.sendJSON(ctx, "tasks.delete", http.MethodDelete, pathf("/tasks/%s", id), nil, nil)
}

func (c *API) ReassignTask(ctx context.Context, id string, in ReassignInput) error {
	return c.sendJSON(ctx, "tasks.reassign", http.MethodPost, pathf("/tasks/%s/reassign", id), in, nil)
}

func (c *API) ReassignmentHistory(ctx context.Context) ([]Reassignment, error) {
	var out []Reassignment
	err := c.getJSON(ctx, "tasks.reassignments", "/tasks/reassignments/history", nil, &out)
	return out, err
}

func (c *API) ListTaskComments(ctx context.Context, taskID string) ([]Comment, error) {
	var out []Comment
	err := c.getJSON(ctx, "tasks.comments.list", pathf("/tasks/%s/comments", taskID), nil, &out)
	return out, err
}

// AddTaskComment posts a comment. When audio is non-nil the comment is sent as
// multipart with the recording attached.
func (c *API) AddTaskComment(ctx context.Context, taskID, text string, audio *FilePart) error {
	path := pathf("/tasks/%s/comments", taskID)
	if audio == nil {
		return c.sendJSON(ctx, "tasks.comments.create", http.MethodPost, path, map[string]string{"text": text}, nil)
	}
	part := *audio
	if part.Field == "" {
		part.Field = "audio"
	}
	return c.sendMultipart(ctx, "tasks.comments.create", path, map[string]string{"text": text}, []FilePart{part}, nil)
}

func (c *API) ListTaskAttachments(ctx context.Context, taskID string) ([]Attachment, error) {
	var out []Attachment
	err := c.getJSON(ctx, "tasks.attachments.list", pathf("/tasks/%s/attachments", taskID), nil, &out)
	return out, err
}

func (c *API) UploadTaskAttachment(ctx context.Context, taskID, filename string, content io.Reader) (Attachment, error) {
	var out Attachment
	err := c.sendMultipart(ctx, "tasks.attachments.create", pathf("/tasks/%s/attachments", taskID), nil,
		[]FilePart{{Field: "file", Filename: filename, Content: content}}, &out)
	return out, err
}

func (c *API) DeleteTaskAttachment(ctx context.Context, taskID, attachmentID string) error {
	return c.sendJSON(ctx, "tasks.attachments.delete", http.MethodDelete,
		pathf("/tasks/%s/attachments/%s", taskID, attachmentID), nil, nil)
}
