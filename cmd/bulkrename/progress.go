package main

import (
	"io"
	"path/filepath"

	"github.com/cheggaaa/pb/v3"

	"github.com/chmdznr/bulk-renamer/internal/tasks"
	"github.com/chmdznr/bulk-renamer/pkg/models"
)

// runProgress counts processed entries of one run on a pb bar
type runProgress struct {
	bar *pb.ProgressBar
}

func newProgressFactory(w io.Writer) tasks.ProgressFactory {
	return func(dir string, total int) tasks.Progress {
		bar := pb.New(total)
		bar.SetWriter(w)
		bar.SetTemplateString(`{{string . "dir"}} {{counters . }} {{bar . }} {{percent . }} {{etime . }}`)
		bar.Set("dir", filepath.Base(dir))
		bar.Start()
		return &runProgress{bar: bar}
	}
}

func (p *runProgress) OnEntry(models.EntryRecord) {
	p.bar.Increment()
}

func (p *runProgress) Finish() {
	p.bar.Finish()
}
