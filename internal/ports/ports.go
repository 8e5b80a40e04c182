package ports

import (
	"context"
	"io"
	"time"

	"OCRPortal/internal/domain"
)

// UserRepository persists login accounts.
type UserRepository interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.NewUser) (*domain.User, error)
}

// DocumentRepository persists uploaded documents and their processing state.
// Lookups of unknown ids return nil without an error.
type DocumentRepository interface {
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)
	ListDocuments(ctx context.Context) ([]domain.Document, error)
	CreateDocument(ctx context.Context, doc domain.NewDocument) (*domain.Document, error)
	UpdateDocument(ctx context.Context, id int64, patch domain.DocumentPatch) (*domain.Document, error)
	DeleteDocument(ctx context.Context, id int64) (bool, error)
}

// Store is the full persistence contract shared by the relational and
// in-memory backends.
type Store interface {
	UserRepository
	DocumentRepository
	Close() error
}

// Recognizer turns an image on disk into text.
type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) (domain.ProcessingResult, error)
}

// NotebookLocator exposes the recognizer's companion notebook path.
type NotebookLocator interface {
	NotebookPath() string
	SetNotebookPath(path string) string
}

// DocumentProcessor drives a document through recognition.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, id int64) (*domain.ProcessingResult, error)
}

// StoredFile describes one file in the upload directory.
type StoredFile struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// FileStore keeps uploaded files on disk.
type FileStore interface {
	Save(ctx context.Context, originalName, contentType string, r io.Reader) (StoredFile, error)
	SaveNotebook(ctx context.Context, r io.Reader) (string, error)
	Remove(path string) error
	List() ([]StoredFile, error)
}

// Notifier forwards messages to an outbound channel (Telegram, etc.).
type Notifier interface {
	Publish(ctx context.Context, message string) error
}

// Scheduler controls when background jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
