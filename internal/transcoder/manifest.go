package transcoder

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

const (
	codecsVideo = "avc1.640028"
	codecsAudio = "mp4a.40.2"
)

// ErrNoRenditions is returned when a master manifest is requested for an
// empty rung set. There is no such thing as playable with zero renditions.
var ErrNoRenditions = errors.New("no successful renditions to reference")

// BuildMasterManifest renders the master playlist text for the given rungs.
// Entry order follows the input order, so callers passing rungs in ladder
// order get identical output for identical successful-rung sets.
func BuildMasterManifest(outputs []RungOutput) (string, error) {
	if len(outputs) == 0 {
		return "", ErrNoRenditions
	}

	var sb strings.Builder
	sb.WriteString("#EXTM3U\n")
	sb.WriteString("#EXT-X-VERSION:3\n")

	for _, out := range outputs {
		r := out.Rung
		sb.WriteString(fmt.Sprintf(
			"#EXT-X-STREAM-INF:BANDWIDTH=%d,AVERAGE-BANDWIDTH=%d,RESOLUTION=%s,CODECS=\"%s,%s\"\n",
			r.PeakBandwidth, r.AverageBandwidth, r.Resolution(), codecsVideo, codecsAudio,
		))
		sb.WriteString(r.Name + "/index.m3u8\n")
	}

	return sb.String(), nil
}

// WriteMasterManifest builds the master playlist and writes it to path.
func WriteMasterManifest(path string, outputs []RungOutput) error {
	content, err := BuildMasterManifest(outputs)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write master manifest: %w", err)
	}
	return nil
}
