package pactum

import (
	"context"
	"io"
	"net/http"
)

func (c *API) ListContracts(ctx context.Context, projectID string) ([]Document, error) {
	var out []Document
	err := c.getJSON(ctx, "contracts.list", "/contracts", projectQuery(projectID), &out)
	return out, err
}

func (c *API) GetContract(ctx context.Context, id string) (Document, error) {
	var out Document
	err := c.getJSON(ctx, "contracts.get", pathf("/contracts/%s", id), nil, &out)
	return out, err
}

func (c *API) UploadContract(ctx context.Context, projectID, filename string, content io.Reader) (Document, error) {
	var out Document
	err := c.sendMultipart(ctx, "contracts.upload", "/contracts/upload",
		map[string]string{"project_id": projectID},
		[]FilePart{{Field: "file", Filename: filename, Content: content}}, &out)
	return out, err
}

func (c *API) ListProjectDocuments(ctx context.Context, projectID string) ([]Document, error) {
	var out []Document
	err := c.getJSON(ctx, "projects.documents.list", pathf("/projects/%s/documents", projectID), nil, &out)
	return out, err
}

func (c *API) UploadProjectDocument(ctx context.Context, projectID, documentType, filename string, content io.Reader) (Document, error) {
	var out Document
	err := c.sendMultipart(ctx, "projects.documents.create", pathf("/projects/%s/documents", projectID),
		map[string]string{"document_type": documentType},
		[]FilePart{{Field: "file", Filename: filename, Content: content}}, &out)
	return out, err
}

func (c *API) DeleteProjectDocument(ctx context.Context, projectID, documentID string) error {
	return c.sendJSON(ctx, "projects.documents.delete", http.MethodDelete,
		pathf("/projects/%s/documents/%s", projectID, documentID), nil, nil)
}
