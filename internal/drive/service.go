package drive

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	folderMimeType      = "application/vnd.google-apps.folder"
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
	xlsxMimeType        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	fileFields = "id, name, mimeType, modifiedTime, size"
)

type Service struct {
	srv *drive.Service
}

func NewService(ctx context.Context, credentialsJSON string) (*Service, error) {
	config, err := google.JWTConfigFromJSON(
		[]byte(credentialsJSON),
		drive.DriveReadonlyScope,
	)
	if err != nil {
		return nil, fmt.Errorf("unable to parse drive credentials: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create drive client: %w", err)
	}

	return &Service{srv: srv}, nil
}

type File struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
	Size         int64  `json:"size,string,omitempty"`
}

// Importable reports whether the file is a spreadsheet the grid reader
// accepts, either by extension or as a native Google Sheet.
func (f File) Importable() bool {
	if f.MimeType == spreadsheetMimeType {
		return true
	}
	switch strings.ToLower(filepath.Ext(f.Name)) {
	case ".csv", ".xlsx", ".xls":
		return true
	}
	return false
}

func fromDrive(f *drive.File) File {
	return File{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		ModifiedTime: f.ModifiedTime,
		Size:         f.Size,
	}
}

// ListFiles returns the importable spreadsheets of a folder, newest first.
// An empty folderID lists the drive root.
func (s *Service) ListFiles(ctx context.Context, folderID string) ([]File, error) {
	if folderID == "" {
		folderID = "root"
	}

	files := make([]File, 0)
	call := s.srv.Files.List().
		Q(fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))).
		Fields("nextPageToken, files(" + fileFields + ")").
		OrderBy("modifiedTime desc").
		Context(ctx)
	err := call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			if file := fromDrive(f); file.Importable() {
				files = append(files, file)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}
	return files, nil
}

// Download fetches the file's metadata and content. Google Sheets are
// exported as xlsx and the returned name gains the .xlsx extension.
// Content larger than maxBytes is reported through ErrTooLarge.
func (s *Service) Download(ctx context.Context, fileID string, maxBytes int64) (File, []byte, error) {
	meta, err := s.srv.Files.Get(fileID).Fields(fileFields).Context(ctx).Do()
	if err != nil {
		return File{}, nil, fmt.Errorf("unable to get file %s: %w", fileID, err)
	}
	file := fromDrive(meta)
	if !file.Importable() {
		return file, nil, fmt.Errorf("file %q is not a spreadsheet", file.Name)
	}

	var body io.ReadCloser
	if file.MimeType == spreadsheetMimeType {
		resp, err := s.srv.Files.Export(fileID, xlsxMimeType).Context(ctx).Download()
		if err != nil {
			return file, nil, fmt.Errorf("unable to export sheet %s: %w", fileID, err)
		}
		body = resp.Body
		file.Name = strings.TrimSuffix(file.Name, ".xlsx") + ".xlsx"
	} else {
		resp, err := s.srv.Files.Get(fileID).Context(ctx).Download()
		if err != nil {
			return file, nil, fmt.Errorf("unable to download file %s: %w", fileID, err)
		}
		body = resp.Body
	}
	defer body.Close()

	data, err := readLimited(body, maxBytes)
	if err != nil {
		return file, nil, fmt.Errorf("%s: %w", file.Name, err)
	}
	return file, data, nil
}

// FindFolderByPath walks a slash separated folder path from the drive root.
func (s *Service) FindFolderByPath(ctx context.Context, path string) (string, error) {
	currentID := "root"
	for _, folder := range strings.Split(path, "/") {
		if folder == "" {
			continue
		}

		result, err := s.srv.Files.List().
			Q(fmt.Sprintf("'%s' in parents and name='%s' and mimeType='%s' and trashed=false",
				escapeQuery(currentID), escapeQuery(folder), folderMimeType)).
			Fields("files(id, name)").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("error finding folder %s: %w", folder, err)
		}
		if len(result.Files) == 0 {
			return "", fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
		}
		currentID = result.Files[0].Id
	}
	return currentID, nil
}
