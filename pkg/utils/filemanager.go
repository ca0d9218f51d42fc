// =============================================================================
// Sales Reconciliation Engine - File Manager Utility
// =============================================================================
//
// This module provides the file handling around an analysis run:
//   - Input discovery
//   - Report naming and writing
//   - Input archival
//   - Run summary logs
//
// ARCHIVAL STRATEGY:
//   - Input exports are moved to input_archive after successful analysis
//   - Failed exports remain in their original location
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for an analysis run.
type FileManager struct {
	// InputDir is the directory scanned for exports.
	InputDir string

	// OutputDir is the directory where reports are written.
	OutputDir string

	// InputArchiveDir is the directory for archived exports.
	InputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2024/01/15/export.csv
	UseTimestampSubdirs bool
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:        inputDir,
		OutputDir:       outputDir,
		InputArchiveDir: inputArchiveDir,
	}
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles walks the input directory for files that accept returns
// true for. Hidden files and spreadsheet lock files ("~$...") are skipped.
//
// RETURNS:
//   - The matching paths, sorted.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverInputFiles(accept func(path string) bool) ([]string, error) {
	var files []string

	err := filepath.WalkDir(fm.InputDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			return nil
		}
		if accept == nil || accept(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
//
// PARAMETERS:
//   - filePath: The path to the file to archive.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	archivePath := fm.getArchivePath(fm.InputArchiveDir, filePath)

	if err := os.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Cross-device moves need copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// getArchivePath constructs the archive path for a file. An export archived
// earlier under the same name is kept; the new one gets a short suffix.
func (fm *FileManager) getArchivePath(archiveDir, filePath string) string {
	fileName := filepath.Base(filePath)

	dir := archiveDir
	if fm.UseTimestampSubdirs {
		now := time.Now()
		dir = filepath.Join(
			archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}

	archivePath := filepath.Join(dir, fileName)
	if FileExists(archivePath) {
		ext := filepath.Ext(fileName)
		archivePath = filepath.Join(dir, strings.TrimSuffix(fileName, ext)+"_"+uuid.NewString()[:8]+ext)
	}
	return archivePath
}

// =============================================================================
// OUTPUT FILES
// =============================================================================

// unsafeNameChars matches characters replaced in placeholder values.
var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// GenerateOutputFileName generates a report file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//       {uuid}      - A random UUID
//       {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//       {date}      - Current date (YYYYMMDD)
//       {source}    - Input file name without extension
//       {profile}   - Matched profile code
//   - ext: The extension to ensure, with the dot (".json").
//   - params: Values for the named placeholders.
//
// RETURNS:
//   - The generated file name. Placeholder values are reduced to safe
//     file-name characters.
//
// EXAMPLE:
//   format: "{profile}_{source}_{timestamp}"
//   params: {"profile": "square", "source": "week 03"}
//   output: "square_week_03_20240115_143022.json"
func GenerateOutputFileName(format, ext string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = strings.Trim(unsafeNameChars.ReplaceAllString(value, "_"), "_")
	}

	result := format
	for placeholder, value := range replacements {
		result = strings.ReplaceAll(result, placeholder, value)
	}

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}

	return result
}

// SourceName returns the file name of path without its extension.
func SourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// WriteOutputFile writes data to name inside the output directory.
// The file is written under a temporary name and renamed into place.
func (fm *FileManager) WriteOutputFile(name string, data []byte) (string, error) {
	if err := os.MkdirAll(fm.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(fm.OutputDir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to move output file into place: %w", err)
	}
	return path, nil
}

// =============================================================================
// RUN SUMMARY LOG
// =============================================================================

// RunSummary describes one invocation of the analyze command.
type RunSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	TotalFiles      int
	SuccessfulFiles int
	FailedFiles     int
	TotalWarnings   int
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo contains information about a successfully analyzed file.
type ProcessedFileInfo struct {
	InputFile     string
	OutputFile    string
	ArchivePath   string
	Profile       string
	Rows          int
	Categories    int
	Products      int
	Warnings      int
	TotalNetSales string
	ProcessTime   time.Duration
}

// FailedFileInfo contains information about a failed file.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
}

// WriteSummaryLog writes a run summary to a text file in outputDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary RunSummary, outputDir string) (string, error) {
	timestamp := summary.EndTime.Format("20060102_150405")
	summaryPath := filepath.Join(outputDir, fmt.Sprintf("run_summary_%s.txt", timestamp))

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	if err := writeSummary(file, summary); err != nil {
		return "", err
	}
	return summaryPath, nil
}

func writeSummary(w io.Writer, summary RunSummary) error {
	writer := bufio.NewWriter(w)
	rule := strings.Repeat("=", 80) + "\n"
	thin := strings.Repeat("-", 80) + "\n"

	fmt.Fprintf(writer, "Sales Reconciliation - Run Summary\n%s\n", rule)
	fmt.Fprintf(writer, "Run Information:\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n\n",
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Sub(summary.StartTime))
	fmt.Fprintf(writer, "Statistics:\n"+
		"  Total Files:    %d\n"+
		"  Successful:     %d\n"+
		"  Failed:         %d\n"+
		"  Warnings:       %d\n\n",
		summary.TotalFiles,
		summary.SuccessfulFiles,
		summary.FailedFiles,
		summary.TotalWarnings)

	if len(summary.ProcessedFiles) > 0 {
		writer.WriteString("Successful Files:\n" + thin)
		for _, pf := range summary.ProcessedFiles {
			fmt.Fprintf(writer, "  Input:           %s\n", pf.InputFile)
			fmt.Fprintf(writer, "  Output:          %s\n", pf.OutputFile)
			if pf.ArchivePath != "" {
				fmt.Fprintf(writer, "  Archived:        %s\n", pf.ArchivePath)
			}
			if pf.Profile != "" {
				fmt.Fprintf(writer, "  Profile:         %s\n", pf.Profile)
			}
			fmt.Fprintf(writer, "  Rows:            %d\n", pf.Rows)
			fmt.Fprintf(writer, "  Categories:      %d\n", pf.Categories)
			fmt.Fprintf(writer, "  Products:        %d\n", pf.Products)
			fmt.Fprintf(writer, "  Warnings:        %d\n", pf.Warnings)
			fmt.Fprintf(writer, "  Total Net Sales: %s\n", pf.TotalNetSales)
			fmt.Fprintf(writer, "  Process Time:    %s\n\n", pf.ProcessTime)
		}
	}

	if len(summary.FailedFilesList) > 0 {
		writer.WriteString("Failed Files:\n" + thin)
		for _, ff := range summary.FailedFilesList {
			fmt.Fprintf(writer, "  File:  %s\n", ff.InputFile)
			fmt.Fprintf(writer, "  Error: %s\n\n", ff.ErrorMessage)
		}
	}

	writer.WriteString(rule + "End of Summary\n")

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush summary file: %w", err)
	}
	return nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
