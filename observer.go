package lovecall

import (
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/proto"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/tools"
)

// Observer receives session notifications for the UI. Callbacks run on
// session goroutines and must not block or call Session.End.
type Observer struct {
	OnStateChange    func(state State)
	OnLevels         func(input, output float64)
	OnGesture        func(g tools.Gesture)
	OnAudioScheduled func(start int64, samples int)
	OnInterrupted    func(dropped int)
	OnToolResults    func(results []*proto.ToolResult)
	OnEnded          func(report TerminationReport)
}
