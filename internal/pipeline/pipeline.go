// Package pipeline wires the Safe Ingestor, Working-Copy Manager, Format
// Normalizer, Field Canonicalizer, Hash Kit, Detection Engine, Rainbow
// Table and Persistence Core into a single ingestion run: a bounded-queue
// producer/worker-pool pipeline built on golang.org/x/sync/errgroup
// (SetLimit over a fixed concurrency budget), with per-item failures
// degrading to diagnostics rather than aborting the whole run.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corpusvault/corpusvault/internal/canon"
	"github.com/corpusvault/corpusvault/internal/config"
	"github.com/corpusvault/corpusvault/internal/detect"
	"github.com/corpusvault/corpusvault/internal/enrich"
	"github.com/corpusvault/corpusvault/internal/hashkit"
	"github.com/corpusvault/corpusvault/internal/ingest"
	"github.com/corpusvault/corpusvault/internal/logging"
	"github.com/corpusvault/corpusvault/internal/normalize"
	"github.com/corpusvault/corpusvault/internal/rainbow"
	"github.com/corpusvault/corpusvault/internal/store"
	"github.com/corpusvault/corpusvault/internal/workingcopy"
)

// DetectionGroup tallies how many observations of one NPIType were found
// in a run, keyed by the type's display string.
type DetectionGroup struct {
	NPIType string `json:"npi_type"`
	Count   int    `json:"count"`
}

// DumpMetadata identifies the dump row a run's results are attached to.
type DumpMetadata struct {
	DumpID      int64  `json:"dump_id"`
	FileName    string `json:"file_name"`
	ContentHash string `json:"content_hash"`
	Reingested  bool   `json:"reingested"`
}

// Summary is the structured result handed back to the out-of-scope
// CLI/server collaborator.
type Summary struct {
	RowsProcessed             int              `json:"rows_processed"`
	UniqueAddresses           int              `json:"unique_addresses"`
	HashedCredentialsDetected int              `json:"hashed_credentials_detected"`
	WeakPasswordsFound        int              `json:"weak_passwords_found"`
	BreachedAddresses         int              `json:"breached_addresses"`
	PIISummary                map[string]int   `json:"pii_summary"`
	DetectionGroups           []DetectionGroup `json:"detection_groups"`
	Metadata                  DumpMetadata     `json:"metadata"`
	Errors                    []string         `json:"errors"`
}

// Runner owns the collaborators a single ingestion run needs: the
// Persistence Core, the Rainbow Table, and the optional breach-enrichment
// client. It holds no mutable run state of its own; a caller constructs
// one Runner and reuses it across files.
type Runner struct {
	Store   *store.Store
	Rainbow *rainbow.Table
	Breach  *enrich.BreachClient
	Config  config.Config
	Log     *logging.Logger
}

// NewRunner builds a Runner. breach may be nil to disable breach enrichment.
func NewRunner(st *store.Store, rt *rainbow.Table, breach *enrich.BreachClient, cfg config.Config, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.Default()
	}
	return &Runner{Store: st, Rainbow: rt, Breach: breach, Config: cfg, Log: log}
}

// fieldResult is one worker's verdict on a single row.
type fieldResult struct {
	rowIndex       int
	malformed      bool
	malformedKind  string
	identityHash   string
	identityEmail  string
	breached       bool
	credentialHash string
	weakCredential bool
	hashedCred     bool
	npi            []npiHit
	err            error
}

type npiHit struct {
	npiType   string
	valueHash string
}

// Run ingests a single file on disk through the full pipeline and returns
// its Summary. A rejection from the Safe Ingestor is returned as an error
// so callers can continue with remaining files.
func (r *Runner) Run(ctx context.Context, path string, breachDate, breachTarget string) (Summary, error) {
	now := time.Now()

	analysis, err := ingest.Analyze(path, 0)
	if err != nil {
		return Summary{}, err
	}
	if analysis.Compression != ingest.CompressionNone {
		return Summary{}, fmt.Errorf("pipeline: %s is compressed (%s); decompress before ingesting", path, analysis.Compression)
	}

	wcManager := workingcopy.New(r.Config.WorkingCopy.Dir, r.Config.WorkingCopy.SecureDelete)
	wc, err := r.stage(wcManager, path, analysis.FormatHint)
	if err != nil {
		return Summary{}, fmt.Errorf("staging %s: %w", path, err)
	}
	defer wc.Close()

	contentHash, err := hashFile(wc.Path)
	if err != nil {
		return Summary{}, fmt.Errorf("hashing working copy: %w", err)
	}

	fileName := path
	dumpID, fresh, err := r.Store.UpsertDump(fileName, breachDate, breachTarget, contentHash, now)
	if err != nil {
		return Summary{}, fmt.Errorf("recording dump: %w", err)
	}

	summary := Summary{
		PIISummary: map[string]int{},
		Metadata: DumpMetadata{
			DumpID:      dumpID,
			FileName:    fileName,
			ContentHash: contentHash,
			Reingested:  !fresh,
		},
	}
	if !fresh {
		// Re-ingesting identical bytes only advances last_seen.
		return summary, nil
	}

	f, err := os.Open(wc.Path)
	if err != nil {
		return Summary{}, fmt.Errorf("reopening working copy: %w", err)
	}
	defer f.Close()

	header, rows := normalize.Delimited(f, ',')
	hints := make([]detect.ColumnHint, len(header))
	for i, h := range header {
		hints[i] = HintForHeader(h)
	}

	aliases := canon.AliasMap{}
	for _, a := range r.Config.EmailAlias {
		for _, alt := range a.Alternates {
			aliases[alt] = append(aliases[alt], a.Canonical)
		}
	}

	results, err := r.processRows(ctx, rows, hints, aliases)
	if err != nil {
		return summary, err
	}

	return r.aggregate(summary, results, now)
}

// stage normalizes the source into a comma-delimited UTF-8 working copy,
// routing JSON/XML through the Format Normalizer first.
func (r *Runner) stage(m *workingcopy.Manager, path string, hint ingest.FormatHint) (*workingcopy.WorkingCopy, error) {
	switch hint {
	case ingest.FormatTSV:
		return m.Stage(path, '\t')
	case ingest.FormatPSV:
		return m.Stage(path, '|')
	case ingest.FormatJSON:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		header, rows, err := normalize.JSON(data)
		if err != nil {
			return nil, err
		}
		return m.StageRows(".csv", header, rows)
	case ingest.FormatXML:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		rows := normalize.XML(f)
		return m.StageRows(".csv", []string{"tag", "text"}, rows)
	default:
		return m.Stage(path, ',')
	}
}

// processRows drains rows through a fixed-size worker pool
// (errgroup.SetLimit), classifying and hashing each row. Classification
// never suspends;
// breach enrichment (the only suspension point besides the row channel
// itself) runs inline per worker and degrades on failure rather than
// aborting the row.
func (r *Runner) processRows(ctx context.Context, rows <-chan normalize.Row, hints []detect.ColumnHint, aliases canon.AliasMap) ([]fieldResult, error) {
	engine := detect.NewEngine()
	lookup := rainbowLookup{ctx: ctx, table: r.Rainbow}

	workers := r.Config.Pipeline.Workers
	if workers <= 0 {
		workers = 1
	}

	resultsCh := make(chan fieldResult, r.Config.Pipeline.QueueSize)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	go func() {
		defer close(resultsCh)
		for row := range rows {
			row := row
			if gCtx.Err() != nil {
				continue
			}
			g.Go(func() error {
				resultsCh <- r.processRow(gCtx, row, hints, aliases, engine, lookup)
				return nil
			})
		}
		g.Wait()
	}()

	var out []fieldResult
	for res := range resultsCh {
		out = append(out, res)
	}
	return out, ctx.Err()
}

func (r *Runner) processRow(ctx context.Context, row normalize.Row, hints []detect.ColumnHint, aliases canon.AliasMap, engine *detect.Engine, lookup rainbowLookup) fieldResult {
	if row.Err != nil {
		return fieldResult{rowIndex: row.Index, malformed: true, malformedKind: "malformed_row", err: row.Err}
	}
	if len(row.Fields) == 1 && isSentinel(row.Fields[0]) {
		return fieldResult{rowIndex: row.Index, malformed: true, malformedKind: strings.Trim(row.Fields[0], "_")}
	}

	res := fieldResult{rowIndex: row.Index}

	for i, value := range row.Fields {
		if value == "" {
			continue
		}
		hint := detect.HintNone
		if i < len(hints) {
			hint = hints[i]
		}

		switch hint {
		case detect.HintUserIdentity:
			canonical := canonicalizeIdentity(value, aliases)
			res.identityHash = hashkit.String(hashkit.AlgorithmSHA256, canonical)
			if strings.Contains(canonical, "@") {
				res.identityEmail = canonical
			}
			continue
		case detect.HintCredential, detect.HintSecureCredential:
			canonical := canon.Canonicalize(value)
			res.credentialHash = hashkit.String(hashkit.AlgorithmSHA256, canonical)
			fp := hashkit.Identify(value)
			if hint == detect.HintSecureCredential || fp.Algorithm != "unknown" {
				res.hashedCred = true
			}
			if hint == detect.HintCredential {
				md5 := hashkit.String(hashkit.AlgorithmMD5, canonical)
				sha256 := hashkit.String(hashkit.AlgorithmSHA256, canonical)
				ntlm := hashkit.NTLM(canonical)
				weak, err := detect.WeakCredential(canonical, md5, sha256, ntlm, lookup)
				if err == nil && weak {
					res.weakCredential = true
				}
			}
			continue
		}

		classification := engine.Classify(value, hint)
		if classification.Matched {
			canonical := canon.Canonicalize(value)
			res.npi = append(res.npi, npiHit{
				npiType:   classification.Type.String(),
				valueHash: hashkit.String(hashkit.AlgorithmSHA256, canonical),
			})
		}
	}

	if res.identityEmail != "" && r.Breach != nil {
		// A collaborator error degrades this row (no enrichment) rather
		// than failing it.
		if records, err := r.Breach.Lookup(ctx, res.identityEmail); err == nil && len(records) > 0 {
			res.breached = true
		}
	}

	return res
}

func canonicalizeIdentity(value string, aliases canon.AliasMap) string {
	if strings.Contains(value, "@") {
		forms := canon.Email(value, aliases)
		if len(forms) > 0 {
			return forms[0]
		}
	}
	return canon.Canonicalize(value)
}

func isSentinel(field string) bool {
	return strings.HasPrefix(field, "__") && strings.HasSuffix(field, "__") && len(field) > 4
}

// rainbowLookup adapts rainbow.Table's context-taking IsWeak to the
// context-free detect.RainbowLookup interface, binding the run's context
// at construction time. Detectors themselves never suspend;
// this adapter is consulted only for the separate weak-credential check,
// which is explicitly a persistence-backed lookup, not a pattern detector.
type rainbowLookup struct {
	ctx   context.Context
	table *rainbow.Table
}

func (l rainbowLookup) IsWeak(hash string) (bool, error) {
	return l.table.IsWeak(l.ctx, hash)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return hashkit.Stream(hashkit.AlgorithmSHA256, f)
}

// aggregate bulk-writes every row's identity/credential/npi observations
// in dependency order (identity -> credential -> npi) and tallies the
// run's Summary.
func (r *Runner) aggregate(summary Summary, results []fieldResult, now time.Time) (Summary, error) {
	identitySeen := map[string]bool{}
	var identityHashes []string

	type credKey struct{ identity, credential string }
	credSeen := map[credKey]bool{}
	var credPairs []credKey

	npiSeen := map[npiHit]bool{}
	groupCounts := map[string]int{}

	breachedIdentities := map[string]bool{}

	for _, res := range results {
		if res.malformed {
			summary.Errors = append(summary.Errors, fmt.Sprintf("row %d: %s", res.rowIndex, res.malformedKind))
			continue
		}
		summary.RowsProcessed++

		if res.identityHash != "" && !identitySeen[res.identityHash] {
			identitySeen[res.identityHash] = true
			identityHashes = append(identityHashes, res.identityHash)
		}
		if res.breached {
			breachedIdentities[res.identityHash] = true
		}
		if res.identityHash != "" && res.credentialHash != "" {
			key := credKey{identity: res.identityHash, credential: res.credentialHash}
			if !credSeen[key] {
				credSeen[key] = true
				credPairs = append(credPairs, key)
			}
		}
		if res.credentialHash != "" {
			if res.hashedCred {
				summary.HashedCredentialsDetected++
			}
			if res.weakCredential {
				summary.WeakPasswordsFound++
			}
		}
		for _, hit := range res.npi {
			if !npiSeen[hit] {
				npiSeen[hit] = true
				groupCounts[hit.npiType]++
				summary.PIISummary[hit.npiType]++
			}
		}
	}

	summary.UniqueAddresses = len(identityHashes)
	summary.BreachedAddresses = len(breachedIdentities)

	for t, c := range groupCounts {
		summary.DetectionGroups = append(summary.DetectionGroups, DetectionGroup{NPIType: t, Count: c})
	}

	identityIDs, err := r.Store.WriteIdentities(identityHashes, now)
	if err != nil {
		return summary, fmt.Errorf("writing identities: %w", err)
	}
	idByHash := make(map[string]int64, len(identityHashes))
	for i, h := range identityHashes {
		idByHash[h] = identityIDs[i]
	}

	observations := make([]store.CredentialObservation, 0, len(credPairs))
	for _, pair := range credPairs {
		observations = append(observations, store.CredentialObservation{
			IdentityRef:    idByHash[pair.identity],
			CredentialHash: pair.credential,
		})
	}
	if err := r.Store.WriteCredentials(observations, now); err != nil {
		return summary, fmt.Errorf("writing credentials: %w", err)
	}

	npiObs := make([]store.NPIObservation, 0, len(npiSeen))
	for hit := range npiSeen {
		npiObs = append(npiObs, store.NPIObservation{NPIType: hit.npiType, ValueHash: hit.valueHash})
	}
	if err := r.Store.WriteNPIEntries(npiObs, now); err != nil {
		return summary, fmt.Errorf("writing npi entries: %w", err)
	}

	return summary, nil
}
