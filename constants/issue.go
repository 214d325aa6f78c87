package constants

// Severity is the canonical severity for validation issues.
type Severity string

// Stable values (these exact strings appear in serialized ledgers).
const (
	SeverityWarning Severity = "WARNING" // surfaced in the report, never fatal
	SeverityError   Severity = "ERROR"   // record flagged or excluded, run continues
)

// IssueKind classifies a validation issue.
type IssueKind string

const (
	IssueUnalignedRow       IssueKind = "UNALIGNED_ROW"        // row could not be aligned to the schema column count
	IssueSchemaMismatch     IssueKind = "SCHEMA_MISMATCH"      // cleaned output disagrees with the reference schema
	IssueMissingRequired    IssueKind = "MISSING_REQUIRED"     // required column empty after reconciliation
	IssueValueParse         IssueKind = "VALUE_PARSE"          // typed parse (number/date) failed, raw text kept
	IssueBalanceGap         IssueKind = "BALANCE_GAP"          // running balance discontinuity beyond epsilon
	IssueDateOutOfOrder     IssueKind = "DATE_OUT_OF_ORDER"    // dates not non-decreasing within a grouping key
	IssueMaskPattern        IssueKind = "MASK_PATTERN"         // masked_id value does not match the mask pattern
	IssueMetadataMissing    IssueKind = "METADATA_MISSING"     // reference metadata field absent from response
	IssueMetadataUnattained IssueKind = "METADATA_UNATTAINED"  // metadata extraction degraded entirely
	IssueDegradedChunk      IssueKind = "DEGRADED_CHUNK"       // cleaning retries exhausted, heuristic fallback used
	IssueWatermarkBleed     IssueKind = "WATERMARK_BLEED"      // stray digit/letter runs interleaved with cell text
)
