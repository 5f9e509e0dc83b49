package main

import (
	"io"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"csv_pii_tokenizer/engine"
)

// progressReporter draws one bar per tokenization stage. Bars are created on
// the first report of a stage since only then is its total known.
type progressReporter struct {
	sync.Mutex
	progress *mpb.Progress
	bars     map[engine.Stage]*mpb.Bar
}

func newProgressReporter(out io.Writer) *progressReporter {
	return &progressReporter{
		progress: mpb.New(mpb.WithOutput(out), mpb.WithWidth(40)),
		bars:     make(map[engine.Stage]*mpb.Bar),
	}
}

func (pr *progressReporter) report(stage engine.Stage, delta, total int) {
	pr.Lock()
	bar, ok := pr.bars[stage]
	if !ok {
		bar = pr.progress.AddBar(int64(total),
			mpb.PrependDecorators(
				decor.Name(string(stage), decor.WCSyncSpaceR),
				decor.CountersNoUnit("%d / %d", decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.OnComplete(
					decor.NewPercentage("%.2f", decor.WCSyncSpaceR), "completed",
				),
			),
		)
		pr.bars[stage] = bar
	}
	pr.Unlock()
	bar.IncrBy(delta)
}

// wait marks every bar complete and flushes the output.
func (pr *progressReporter) wait() {
	pr.Lock()
	for _, bar := range pr.bars {
		bar.SetTotal(-1, true)
	}
	pr.Unlock()
	pr.progress.Wait()
}
