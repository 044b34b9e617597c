package upload

import (
	"context"
	"log"
	"time"

	"golang.org/x/oauth2"

	"github.com/codebuildervaibhav/clipforge/internal/storage"
	"github.com/codebuildervaibhav/clipforge/internal/types"
)

// PublishBackend performs the actual remote upload of a rendered clip.
type PublishBackend interface {
	Publish(ctx context.Context, filePath string, clip *types.Clip, token *oauth2.Token) (string, error)
}

// Authorizer refreshes stored credentials.
type Authorizer interface {
	Refresh(ctx context.Context, cred *types.Credential) (*types.Credential, error)
}

type uploadRequest struct {
	clipID    string
	userEmail string
}

// Coordinator runs the per-clip publish state machine:
// pending -> uploading -> completed | failed. Each clip upload is its own
// unit of concurrent work, decoupled from the job pipeline and from sibling
// clips. After a successful publish the clip's local files are retired; when
// the last clip of a job completes, the job-level artifacts are retired too.
type Coordinator struct {
	repo      *storage.Repository
	artifacts *storage.Artifacts
	auth      Authorizer
	backend   PublishBackend
	queue     chan uploadRequest
	now       func() time.Time
}

// NewCoordinator creates an upload coordinator.
func NewCoordinator(repo *storage.Repository, artifacts *storage.Artifacts,
	auth Authorizer, backend PublishBackend) *Coordinator {
	return &Coordinator{
		repo:      repo,
		artifacts: artifacts,
		auth:      auth,
		backend:   backend,
		queue:     make(chan uploadRequest, 50),
		now:       time.Now,
	}
}

// Start launches the upload workers.
func (c *Coordinator) Start(workerCount int) {
	if workerCount <= 0 {
		workerCount = 2
	}
	for i := 0; i < workerCount; i++ {
		go c.worker()
	}
}

// Enqueue validates the precondition and queues the upload. A user without
// any stored credential gets ErrNoCredentials before an attempt is created.
func (c *Coordinator) Enqueue(clipID, userEmail string) error {
	cred, err := c.repo.GetCredential(userEmail)
	if err != nil {
		return err
	}
	if cred == nil {
		return ErrNoCredentials
	}

	c.queue <- uploadRequest{clipID: clipID, userEmail: userEmail}
	log.Printf("Upload queued for clip %s (user %s)", clipID, userEmail)
	return nil
}

func (c *Coordinator) worker() {
	for req := range c.queue {
		c.uploadClip(context.Background(), req.clipID, req.userEmail)
	}
}

// uploadClip drives one clip through the publish state machine. Failures
// only touch this clip; sibling clips and the job record are unaffected.
func (c *Coordinator) uploadClip(ctx context.Context, clipID, userEmail string) {
	clip, err := c.repo.GetClip(clipID)
	if err != nil {
		log.Printf("Clip %s not found for upload: %v", clipID, err)
		return
	}

	log.Printf("Starting publish for clip %s", clipID)
	if _, err := c.repo.UpdateClipUpload(clipID, types.UploadUploading, "", ""); err != nil {
		log.Printf("Failed to mark clip %s uploading: %v", clipID, err)
		return
	}

	videoID, err := c.publish(ctx, clip, userEmail)
	if err != nil {
		log.Printf("Failed to publish clip %s: %v", clipID, err)
		if _, err := c.repo.UpdateClipUpload(clipID, types.UploadFailed, "", err.Error()); err != nil {
			log.Printf("Failed to record upload failure for clip %s: %v", clipID, err)
		}
		return
	}

	if _, err := c.repo.UpdateClipUpload(clipID, types.UploadCompleted, videoID, ""); err != nil {
		log.Printf("Failed to record upload success for clip %s: %v", clipID, err)
		return
	}
	log.Printf("Successfully published clip %s: %s", clipID, videoID)

	c.retireAfterPublish(clip)
}

// publish resolves a usable token and performs the remote upload.
func (c *Coordinator) publish(ctx context.Context, clip *types.Clip, userEmail string) (string, error) {
	cred, err := c.repo.GetCredential(userEmail)
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", ErrNoCredentials
	}

	now := c.now()
	if !now.Before(cred.TokenExpires) {
		if cred.RefreshToken == "" {
			return "", &AuthError{Err: ErrTokenExpired}
		}
		cred, err = c.auth.Refresh(ctx, cred)
		if err != nil {
			return "", &AuthError{Err: err}
		}
	}

	token := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.TokenExpires,
	}

	videoID, err := c.backend.Publish(ctx, clip.OutputPath, clip, token)
	if err != nil {
		return "", err
	}
	return videoID, nil
}

// retireAfterPublish deletes the published clip's local files, and the
// job-level artifacts once every clip of the job has been published. The
// clip's metadata record stays queryable.
func (c *Coordinator) retireAfterPublish(clip *types.Clip) {
	c.artifacts.RetireClipArtifacts(clip)

	remaining, err := c.repo.CountUnpublishedClips(clip.JobID)
	if err != nil {
		log.Printf("Failed to count remaining clips for job %s: %v", clip.JobID, err)
		return
	}
	if remaining > 0 {
		return
	}

	job, err := c.repo.GetJob(clip.JobID)
	if err != nil {
		return
	}
	log.Printf("All clips of job %s published, retiring job artifacts", clip.JobID)
	c.artifacts.RetireJobArtifacts(job)
}
