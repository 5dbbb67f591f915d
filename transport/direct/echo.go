package direct

import (
	lovecall "github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000"
	"github.com/maxteel122343/https-github.com-maxteel122343-love-ai-app-sub000/audio"
)

// Echo answers every microphone frame with the same audio as a model chunk
// until the connection is closed. Images and tool results are discarded.
func (m *Model) Echo() {
	for {
		select {
		case <-m.closed:
			return
		case frame := <-m.audio:
			pcm := audio.Resample(frame, audio.InputSampleRate, audio.ModelOutputSampleRate)
			if !m.Emit(lovecall.Event{Type: lovecall.EventAudio, Audio: audio.EncodeBase64(pcm)}) {
				return
			}
		case <-m.images:
		case <-m.results:
		}
	}
}
