package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// BlobStore reads and writes one dataset folder inside an Azure Blob
// container reached through a SAS URL. It serves as both Source and Sink.
type BlobStore struct {
	client *container.Client
	prefix string
}

// NewBlobStore opens a dataset folder in the container the SAS URL grants
// access to. folder may be empty for a dataset at the container root.
func NewBlobStore(containerSASURL, folder string) (*BlobStore, error) {
	client, err := container.NewClientWithNoCredential(containerSASURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid container SAS URL: %w", err)
	}
	prefix := strings.Trim(folder, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &BlobStore{client: client, prefix: prefix}, nil
}

// List returns the names of every blob under the dataset folder, relative to
// the folder.
func (s *BlobStore) List(ctx context.Context) ([]string, error) {
	var names []string
	pager := s.client.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{
		Prefix: &s.prefix,
	})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, wrapBlobErr("list blobs", err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			names = append(names, strings.TrimPrefix(*item.Name, s.prefix))
		}
	}
	return names, nil
}

func (s *BlobStore) Read(ctx context.Context, name string) ([]byte, error) {
	resp, err := s.client.NewBlobClient(s.prefix+name).DownloadStream(ctx, nil)
	if err != nil {
		return nil, wrapBlobErr("download "+name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	return data, nil
}

func (s *BlobStore) Write(ctx context.Context, name string, data []byte) error {
	_, err := s.client.NewBlockBlobClient(s.prefix+name).UploadBuffer(ctx, data, nil)
	if err != nil {
		return wrapBlobErr("upload "+name, err)
	}
	return nil
}

// wrapBlobErr surfaces the storage error code and, for auth failures, a hint
// about the usual cause.
func wrapBlobErr(op string, err error) error {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch respErr.StatusCode {
	case 403:
		return fmt.Errorf("%s: access denied (check that the SAS token grants read, write, and list permissions and has not expired): %w", op, err)
	case 404:
		return fmt.Errorf("%s: not found (check the container URL and folder path): %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
