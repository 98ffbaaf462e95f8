// Package runner wires the symbol model, snapshot store, phantom-file
// manager, change detector, reference resolver, planner, executor, and
// generator — plus the parser, LLM client, renderer, and VCS adapter —
// into one end-to-end documentation run: load-or-init metadata, stage
// phantom files, diff, resolve references, plan, dispatch workers,
// render, and restore the working tree on the way out.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/docweave/internal/config"
	"github.com/ternarybob/docweave/internal/fileutil"
	"github.com/ternarybob/docweave/internal/logger"
	"github.com/ternarybob/docweave/pkg/changedet"
	"github.com/ternarybob/docweave/pkg/docmodel"
	"github.com/ternarybob/docweave/pkg/exec"
	"github.com/ternarybob/docweave/pkg/generate"
	"github.com/ternarybob/docweave/pkg/llmclient"
	"github.com/ternarybob/docweave/pkg/phantom"
	"github.com/ternarybob/docweave/pkg/plan"
	"github.com/ternarybob/docweave/pkg/render"
	"github.com/ternarybob/docweave/pkg/resolve"
	"github.com/ternarybob/docweave/pkg/snapshot"
	"github.com/ternarybob/docweave/pkg/symbols"
	"github.com/ternarybob/docweave/pkg/vcs"
)

const sourceExt = ".go"

// Stats summarizes one completed run for the CLI to report.
type Stats struct {
	SymbolCount  int
	TasksRun     int
	CycleBreaks  []string
	DeletedItems []docmodel.DeletedItem
}

// Runner owns the collaborators for one repository across runs.
type Runner struct {
	cfg      *config.Config
	repo     *vcs.Repo
	resolver resolve.Resolver
	llm      llmclient.Provider
}

// New builds a Runner from cfg, constructing its LLM client from
// cfg.LLM.Provider ("ollama" default, "gemini" optional).
func New(ctx context.Context, cfg *config.Config) (*Runner, error) {
	if !fileutil.IsDir(cfg.Repo.RepoPath) {
		return nil, fmt.Errorf("runner: repo_path %q is not a directory", cfg.Repo.RepoPath)
	}

	timeout := time.Duration(cfg.LLM.RequestTimeout) * time.Second

	var client llmclient.Provider
	switch cfg.LLM.Provider {
	case "gemini":
		gc, err := llmclient.NewGeminiClient(ctx, cfg.LLM.GeminiAPIKey, cfg.LLM.GeminiModel, timeout)
		if err != nil {
			return nil, fmt.Errorf("runner: construct gemini client: %w", err)
		}
		client = gc
	default:
		client = llmclient.NewOllamaClient(cfg.LLM.OllamaHost, cfg.LLM.OllamaModel, timeout)
	}

	return &Runner{
		cfg:      cfg,
		repo:     vcs.Open(cfg.Repo.RepoPath),
		resolver: resolve.NewGoResolver(),
		llm:      client,
	}, nil
}

// Clear wipes the snapshot and rendered-output directories, for the
// CLI's --clear flag (start over rather than resume).
func (r *Runner) Clear() error {
	if err := fileutil.RemoveAll(filepath.Join(r.cfg.Repo.RepoPath, r.cfg.Repo.ProjectHierarchy)); err != nil {
		return fmt.Errorf("runner: clear snapshot dir: %w", err)
	}
	if err := fileutil.RemoveAll(r.cfg.MarkdownDocsPath()); err != nil {
		return fmt.Errorf("runner: clear markdown dir: %w", err)
	}
	return nil
}

// Run executes one complete documentation pass: load-or-init the
// snapshot, phantom-stage committed blobs, diff against the previous
// snapshot, resolve references, plan tasks, dispatch the worker pool,
// checkpoint, render, restore the working tree, and stage outputs.
func (r *Runner) Run(ctx context.Context, profile string) (*Stats, error) {
	log := logger.GetLogger()
	snapshotDir := filepath.Join(r.cfg.Repo.RepoPath, r.cfg.Repo.ProjectHierarchy)

	var oldMeta *docmodel.MetaInfo
	if fileutil.Exists(r.cfg.SnapshotPath()) {
		var err error
		oldMeta, err = snapshot.Load(snapshotDir)
		if err != nil {
			return nil, fmt.Errorf("runner: load previous snapshot: %w", err)
		}
	}

	whitelist, err := loadWhitelist(r.cfg.Repo.WhitelistPath)
	if err != nil {
		return nil, fmt.Errorf("runner: load whitelist: %w", err)
	}

	phantomMgr := phantom.New(r.repo, r.cfg.Repo.RepoPath, sourceExt)
	phResult, err := phantomMgr.Materialize()
	if err != nil {
		return nil, fmt.Errorf("runner: materialize phantom files: %w", err)
	}

	var restoreOnce sync.Once
	restore := func() {
		restoreOnce.Do(func() {
			if err := phantomMgr.Restore(); err != nil {
				log.Error().Err(err).Msg("phantom restore failed; working tree may need manual recovery")
			}
		})
	}
	defer restore()

	rawFiles, err := symbols.ExtractDir(r.cfg.Repo.RepoPath)
	if err != nil {
		return nil, fmt.Errorf("runner: extract symbols: %w", err)
	}
	files := remapReflection(rawFiles, phResult.ReflectionMap, r.cfg.Repo.RepoPath)

	meta, err := docmodel.NewMetaInfo(r.cfg.Repo.RepoPath, files)
	if err != nil {
		return nil, fmt.Errorf("runner: build symbol tree: %w", err)
	}
	meta.FakeFileReflection = phResult.ReflectionMap
	meta.JumpFiles = phResult.JumpFiles
	meta.Whitelist = whitelist
	if oldMeta != nil {
		meta.InGenerationProcess = oldMeta.InGenerationProcess
	}

	deleted := changedet.Detect(oldMeta, meta.Tree)
	meta.DeletedItemsFromOlderMeta = deleted

	adapter := resolve.New(r.resolver, r.cfg.Repo.RepoPath)
	if err := adapter.Resolve(meta.Tree, meta.FakeFileReflection, meta.JumpFiles, meta.Whitelist); err != nil {
		log.Warn().Err(err).Msg("reference resolution reported an error; affected symbols keep their previous edges")
	}

	whitelistSet := make(map[string]bool, len(whitelist))
	for _, w := range whitelist {
		whitelistSet[w.FilePath] = true
	}

	var cycleBreaks []string
	onCycleBreak := func(qualifiedName string) {
		cycleBreaks = append(cycleBreaks, qualifiedName)
		log.Warn().Str("symbol", qualifiedName).Msg("breaking reference cycle; dependency treated as soft")
	}
	tm := plan.Plan(meta.Tree, r.cfg.Repo.IgnoreList, whitelistSet, onCycleBreak)

	meta.InGenerationProcess = true

	var snapMu sync.Mutex
	checkpoint := func(flashReferences bool) {
		snapMu.Lock()
		defer snapMu.Unlock()
		if err := snapshot.Checkpoint(meta, snapshotDir, flashReferences); err != nil {
			log.Error().Err(err).Msg("checkpoint failed")
		}
	}
	checkpoint(false)

	tm.Sync = func() {
		checkpoint(true)
		if err := render.WriteAll(meta.Tree, r.cfg.MarkdownDocsPath()); err != nil {
			log.Error().Err(err).Msg("markdown refresh failed")
		}
	}

	genCfg := generate.Config{
		MaxDocumentTokens: r.cfg.Run.MaxDocumentTokens,
		Profile:           profile,
	}

	var tasksRun atomic.Int64
	exec.Run(tm, r.cfg.Run.MaxThreadCount, func(payload interface{}) {
		item, ok := payload.(*docmodel.DocItem)
		if !ok {
			return
		}
		defer func() {
			if rec := recover(); rec != nil {
				item.Status = docmodel.StatusNotGenerated
				log.Error().Str("symbol", item.GetFullName(true)).Str("panic", fmt.Sprint(rec)).Msg("generation handler panicked")
			}
		}()
		if tokens, exceeds := generate.TokensExceedBudget(item, genCfg); exceeds {
			log.Warn().Str("symbol", item.GetFullName(true)).Int("tokens", tokens).Msg("prompt exceeds configured token budget; proceeding without truncation")
		}
		generate.Generate(ctx, item, r.llm, genCfg)
		tasksRun.Add(1)
	})

	meta.InGenerationProcess = false
	if headHash, err := r.repo.HeadHash(); err == nil {
		meta.DocumentVersion = headHash
	} else {
		log.Warn().Err(err).Msg("could not read HEAD hash; document_version left unset")
	}

	checkpoint(true)
	if err := render.WriteAll(meta.Tree, r.cfg.MarkdownDocsPath()); err != nil {
		log.Error().Err(err).Msg("final markdown render failed")
	}

	restore()

	if err := r.repo.Stage(r.cfg.Repo.ProjectHierarchy); err != nil {
		log.Warn().Err(err).Msg("failed to stage snapshot directory")
	}
	if err := r.repo.Stage(r.cfg.Repo.MarkdownDocsFolder); err != nil {
		log.Warn().Err(err).Msg("failed to stage markdown directory")
	}

	return &Stats{
		SymbolCount:  len(meta.Tree.GetPreorderTraversal()),
		TasksRun:     int(tasksRun.Load()),
		CycleBreaks:  cycleBreaks,
		DeletedItems: deleted,
	}, nil
}

// remapReflection folds phantom-staged content back into the tree
// under its original path: a modified file's current code now lives
// at its "_latest_version" sibling on disk (phantom.Manager swapped
// the committed blob into the original path so the resolver reads
// stable line numbers), so the symbol tree — which must reflect the
// working-tree code — is built from the sibling content instead. A zero-byte sibling means the file was deleted but
// not staged; it is dropped from the tree entirely and surfaces only
// through changedet's deleted-item bookkeeping.
func remapReflection(files map[string][]docmodel.Record, reflectionMap map[string]string, repoRoot string) map[string][]docmodel.Record {
	values := make(map[string]bool, len(reflectionMap))
	for _, v := range reflectionMap {
		values[v] = true
	}

	out := make(map[string][]docmodel.Record, len(files))
	for path, recs := range files {
		if values[path] {
			continue
		}
		out[path] = recs
	}

	for original, latest := range reflectionMap {
		info, err := os.Stat(filepath.Join(repoRoot, latest))
		if err != nil || info.Size() == 0 {
			delete(out, original)
			continue
		}
		if recs, ok := files[latest]; ok {
			out[original] = recs
		} else {
			delete(out, original)
		}
	}
	return out
}

// loadWhitelist reads the whitelist file: a JSON array of
// {file_path, id_text} entries.
func loadWhitelist(path string) ([]docmodel.WhitelistEntry, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read whitelist file %q: %w", path, err)
	}
	var entries []docmodel.WhitelistEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse whitelist file %q: %w", path, err)
	}
	return entries, nil
}
