// =============================================================================
// Vetspire Import - File Manager Utility
// =============================================================================
//
// This module provides file utilities shared by the commands:
//   - Directory management
//   - Artifact naming (timestamp + dry-run/full-send tag)
//   - JSON artifact writing
//   - Failure log and processing summary generation
//
// ARTIFACT NAMING:
//   <prefix>_<timestamp>[_<tag>].<ext>, e.g.
//     import-results_2024-01-15T14-30-22-123Z_dry-run.json
//   Timestamps are UTC with millisecond precision and no colons, so the
//   names sort chronologically and are valid on every filesystem.
//
// =============================================================================

package utils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Mode tags appended to artifact names.
const (
	TagDryRun   = "dry-run"
	TagFullSend = "full-send"
)

// ModeTag returns the artifact tag for a run.
func ModeTag(fullSend bool) string {
	if fullSend {
		return TagFullSend
	}
	return TagDryRun
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDir creates dir and its parents if they don't exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// Timestamp formats t as 2006-01-02T15-04-05-000Z in UTC.
func Timestamp(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s-%03dZ", t.Format("2006-01-02T15-04-05"), t.Nanosecond()/int(time.Millisecond))
}

// TimestampedName builds an artifact file name.
//
// PARAMETERS:
//   - prefix: The artifact kind, e.g. "import-results".
//   - tag: Optional suffix such as TagDryRun. Omitted when empty.
//   - ext: The extension including the dot, e.g. ".json".
//   - t: The run time.
//
// EXAMPLE:
//   TimestampedName("import-failures", "full-send", ".json", t)
//   -> "import-failures_2024-01-15T14-30-22-123Z_full-send.json"
func TimestampedName(prefix, tag, ext string, t time.Time) string {
	name := prefix + "_" + Timestamp(t)
	if tag != "" {
		name += "_" + tag
	}
	return name + ext
}

// =============================================================================
// JSON ARTIFACTS
// =============================================================================

// WriteJSON writes v as indented JSON to path, creating the parent directory.
func WriteJSON(path string, v any) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadJSON decodes the JSON file at path into v.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry represents a single error log entry.
type ErrorLogEntry struct {
	Timestamp    time.Time
	Subject      string
	ErrorType    string
	ErrorMessage string
	FieldName    string
	FieldValue   string
}

// WriteErrorLog writes error entries to error_log_<timestamp>.txt in
// outputDir. Nothing is written for an empty list.
//
// RETURNS:
//   - The path to the error log file, or "" if there were no entries.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}
	if err := EnsureDir(outputDir); err != nil {
		return "", err
	}

	logPath := filepath.Join(outputDir, TimestampedName("error_log", "", ".txt", time.Now()))
	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Vetspire Import - Error Log\n"+
		"Generated: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"),
		len(entries))

	for i, entry := range entries {
		fmt.Fprintf(writer, "Error #%d\n"+
			"  Timestamp:  %s\n"+
			"  Subject:    %s\n"+
			"  Error Type: %s\n"+
			"  Message:    %s\n",
			i+1,
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Subject,
			entry.ErrorType,
			entry.ErrorMessage)
		if entry.FieldName != "" {
			fmt.Fprintf(writer, "  Field:      %s\n", entry.FieldName)
		}
		if entry.FieldValue != "" {
			fmt.Fprintf(writer, "  Value:      %s\n", entry.FieldValue)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}
	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// Stat is one labelled count in a summary.
type Stat struct {
	Label string
	Value int
}

// ProcessingSummary contains summary information about a command run.
type ProcessingSummary struct {
	Command     string
	RunID       string
	Mode        string
	InputFile   string
	StartTime   time.Time
	EndTime     time.Time
	Stats       []Stat
	OutputFiles []string
	Failures    []ErrorLogEntry
}

// WriteSummaryLog writes a processing summary to
// processing_summary_<timestamp>.txt in outputDir.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	if err := EnsureDir(outputDir); err != nil {
		return "", err
	}

	summaryPath := filepath.Join(outputDir, TimestampedName("processing_summary", "", ".txt", summary.StartTime))
	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	duration := summary.EndTime.Sub(summary.StartTime)
	fmt.Fprintf(writer, "Vetspire Import - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Command:    %s\n"+
		"  Run ID:     %s\n"+
		"  Mode:       %s\n"+
		"  Input:      %s\n"+
		"  Start Time: %s\n"+
		"  End Time:   %s\n"+
		"  Duration:   %s\n\n",
		summary.Command,
		summary.RunID,
		summary.Mode,
		summary.InputFile,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		duration.String())

	if len(summary.Stats) > 0 {
		writer.WriteString("Statistics:\n")
		for _, s := range summary.Stats {
			fmt.Fprintf(writer, "  %-24s %d\n", s.Label+":", s.Value)
		}
		writer.WriteString("\n")
	}

	if len(summary.OutputFiles) > 0 {
		writer.WriteString("Output Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, f := range summary.OutputFiles {
			fmt.Fprintf(writer, "  %s\n", f)
		}
		writer.WriteString("\n")
	}

	if len(summary.Failures) > 0 {
		writer.WriteString("Failures:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, f := range summary.Failures {
			fmt.Fprintf(writer, "  %s\n", f.Subject)
			fmt.Fprintf(writer, "  Error: %s\n\n", f.ErrorMessage)
		}
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}
	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
