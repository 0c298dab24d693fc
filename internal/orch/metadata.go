package orch

import (
	"path/filepath"
	"time"

	"github.com/imyousuf/codescribe/internal/model"
)

func (o *Orchestrator) writeMetadata() error {
	leaves := 0
	o.deps.Tree.WalkPostOrder(func(n *model.ModuleNode) {
		if n.IsLeaf() {
			leaves += len(n.Components)
		}
	})
	meta := model.Metadata{
		GenerationInfo: model.GenerationInfo{
			Timestamp: time.Now().UTC(),
			MainModel: o.deps.Client.Model(),
			RepoPath:  o.opts.RepoPath,
			CommitID:  o.opts.CommitID,
		},
		Statistics: model.Statistics{
			TotalComponents: len(o.deps.Registry),
			LeafComponents:  leaves,
			FilesAnalyzed:   o.opts.FilesAnalyzed,
			MaxDepth:        o.deps.Tree.Depth(),
		},
	}
	return writeJSON(filepath.Join(o.deps.Workspace.DocsDir(), metadataFilename), meta)
}
