package rename

import "github.com/chmdznr/bulk-renamer/pkg/models"

// Observer receives one record per processed entry, in processing order.
// Renamer calls it synchronously from the walking goroutine.
type Observer interface {
	OnEntry(rec models.EntryRecord)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(rec models.EntryRecord)

func (f ObserverFunc) OnEntry(rec models.EntryRecord) { f(rec) }

// Observers fans a record out to several observers; nil entries are ignored
type Observers []Observer

func (o Observers) OnEntry(rec models.EntryRecord) {
	for _, obs := range o {
		if obs != nil {
			obs.OnEntry(rec)
		}
	}
}
