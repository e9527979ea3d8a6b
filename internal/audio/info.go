// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// Info is the properties report of an audio file.
type Info struct {
	Path       string
	Format     string
	SampleRate int
	Samples    int
	Channels   int
	Title      string
	Artist     string
	Album      string
}

// Describe loads path and reports its properties. MP3 files also carry
// their ID3v2 tags.
func Describe(path string) (*Info, error) {
	src, err := LoadSource(path)
	if err != nil {
		return nil, err
	}
	info := DescribeSource(src)
	if src.Format == "mp3" {
		readTags(path, info)
	}
	return info, nil
}

// DescribeSource reports the properties of an already loaded source.
func DescribeSource(src *Source) *Info {
	return &Info{
		Path:       src.Path,
		Format:     src.Format,
		SampleRate: src.SampleRate,
		Samples:    src.TotalSamples(),
		Channels:   src.Channels,
	}
}

// Seconds returns the length in seconds.
func (i *Info) Seconds() float64 {
	if i.SampleRate == 0 {
		return 0
	}
	return float64(i.Samples) / float64(i.SampleRate)
}

// String renders the report, one property per line.
func (i *Info) String() string {
	secs := i.Seconds()
	mins := math.Floor(secs / 60)

	var b strings.Builder
	if i.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", i.Title)
	}
	if i.Artist != "" {
		fmt.Fprintf(&b, "Artist: %s\n", i.Artist)
	}
	if i.Album != "" {
		fmt.Fprintf(&b, "Album: %s\n", i.Album)
	}
	fmt.Fprintf(&b, "Sampling Frequency: %d\n", i.SampleRate)
	fmt.Fprintf(&b, "Number of Samples: %d\n", i.Samples)
	fmt.Fprintf(&b, "Length: %.3f sec. = %d min. %.3f sec.\n", secs, int(mins), secs-mins*60)
	fmt.Fprintf(&b, "Number of Channels: %d\n", i.Channels)
	return b.String()
}

// readTags fills title, artist and album from ID3v2 tags, falling back to
// the file name for the title.
func readTags(path string, info *Info) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err == nil {
		defer tag.Close()
		info.Title = strings.TrimSpace(tag.Title())
		info.Artist = strings.TrimSpace(tag.Artist())
		info.Album = strings.TrimSpace(tag.Album())
	}
	if info.Title == "" {
		base := filepath.Base(path)
		info.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
}
