package blob

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	azureblob "github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
)

// AzureStore keeps uploads in a private Azure Blob container and hands out
// short-lived read URLs.
type AzureStore struct {
	client    *azblob.Client
	cred      *azblob.SharedKeyCredential
	account   string
	container string
	urlTTL    time.Duration
	now       func() time.Time
}

func NewAzureStore(account, key, container string, urlTTL time.Duration) (*AzureStore, error) {
	cred, err := azblob.NewSharedKeyCredential(account, key)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}
	if urlTTL <= 0 {
		urlTTL = 24 * time.Hour
	}
	return &AzureStore{
		client:    client,
		cred:      cred,
		account:   account,
		container: container,
		urlTTL:    urlTTL,
		now:       time.Now,
	}, nil
}

func (s *AzureStore) Put(ctx context.Context, key, contentType string, data []byte) (Object, error) {
	_, err := s.client.UploadBuffer(ctx, s.container, key, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &azureblob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return Object{}, fmt.Errorf("azure upload %s: %w", key, err)
	}
	signed, err := s.readURL(key)
	if err != nil {
		return Object{}, err
	}
	return Object{Key: key, URL: signed, ContentType: contentType, Size: int64(len(data))}, nil
}

func (s *AzureStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DeleteBlob(ctx, s.container, key, nil); err != nil {
		return fmt.Errorf("azure delete %s: %w", key, err)
	}
	return nil
}

func (s *AzureStore) readURL(key string) (string, error) {
	now := s.now().UTC()
	params, err := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		StartTime:     now.Add(-5 * time.Minute),
		ExpiryTime:    now.Add(s.urlTTL),
		Permissions:   (&sas.BlobPermissions{Read: true}).String(),
		ContainerName: s.container,
		BlobName:      key,
	}.SignWithSharedKey(s.cred)
	if err != nil {
		return "", fmt.Errorf("azure sas %s: %w", key, err)
	}
	u := url.URL{
		Scheme:   "https",
		Host:     s.account + ".blob.core.windows.net",
		Path:     "/" + s.container + "/" + key,
		RawQuery: params.Encode(),
	}
	return u.String(), nil
}
