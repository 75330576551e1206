package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// OutputManager handles the upload and processed-file areas of the service
type OutputManager struct {
	UploadDir string
	OutputDir string
}

// NewOutputManager creates a new output manager
func NewOutputManager(uploadDir, outputDir string) *OutputManager {
	return &OutputManager{
		UploadDir: uploadDir,
		OutputDir: outputDir,
	}
}

// EnsureDirs creates the upload and output directories if they don't exist
func (om *OutputManager) EnsureDirs() error {
	for _, dir := range []string{om.UploadDir, om.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// UploadPath is where the archive uploaded for a job is stored
func (om *OutputManager) UploadPath(jobID, fileName string) string {
	cleanFileName := SecureFilename(filepath.Base(fileName))
	if cleanFileName == "" {
		cleanFileName = "upload.zip"
	}
	return filepath.Join(om.UploadDir, fmt.Sprintf("%s_%s", jobID, cleanFileName))
}

// OutputPath is the pipe-delimited result file of a job
func (om *OutputManager) OutputPath(jobID string) string {
	return filepath.Join(om.OutputDir, fmt.Sprintf("processed_%s_pipe.txt", jobID))
}

// DownloadName is the attachment name offered to clients
func (om *OutputManager) DownloadName(jobID string) string {
	return fmt.Sprintf("processed_data_%s.txt", jobID)
}

// FileSize returns the size of a file in bytes
func (om *OutputManager) FileSize(filePath string) (int64, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return fileInfo.Size(), nil
}
