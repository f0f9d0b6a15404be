package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/snappy"

	"github.com/janelia-flyem/ezimage/ezimage"
	"github.com/janelia-flyem/ezimage/gateway"
	"github.com/janelia-flyem/ezimage/pixels"
)

var (
	showHelp   = flag.Bool("help", false, "")
	runVerbose = flag.Bool("verbose", false, "")

	host   = flag.String("host", "", "")
	port   = flag.Int("port", 0, "")
	user   = flag.String("user", "", "")
	group  = flag.String("group", "", "")
	secure = flag.Bool("secure", false, "")

	start   = flag.String("start", "", "")
	lengths = flag.String("lengths", "", "")
	level   = flag.Int("level", 0, "")
	pad     = flag.Bool("pad", false, "")

	outdir = flag.String("outdir", ".", "")
)

const helpMessage = `
ezimage fetches a pixel region from a remote image server and writes it to
a snappy-compressed raw dump plus a JSON sidecar describing its shape.

Usage: ezimage fetch [options] image-id

	-host       =string   Server host.  Defaults to EZIMAGE_HOST or config file.
	-port       =number   Server port.  Defaults to EZIMAGE_PORT or config file.
	-user       =string   User name.  Defaults to EZIMAGE_USER or config file.
	-group      =string   Group name.  Defaults to EZIMAGE_GROUP or config file.
	-secure     (flag)    Use a secure (https) session.

	-start      =string   Comma-separated XYZCT start coordinate, e.g. "0,0,10,0,0".
	-lengths    =string   Comma-separated XYZCT axis lengths.
	-level      =number   Pyramid level, 0 for full resolution.
	-pad        (flag)    Zero-fill out-of-bounds parts of the region.

	-outdir     =string   Output directory.  Default is the current directory.

	-verbose    (flag)    Run in verbose mode.
	-h, -help   (flag)    Show help message
`

// sidecar describes the dumped buffer so other tools can reinterpret it.
type sidecar struct {
	ImageID   int64    `json:"image_id"`
	Name      string   `json:"name"`
	PixelType string   `json:"pixel_type"`
	DimOrder  string   `json:"dim_order"`
	Shape     [5]int32 `json:"shape"`
	Level     int      `json:"pyramid_level"`
}

func parseCoords(s string) ([]int32, error) {
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	coords := make([]int32, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad coordinate %q: %v", field, err)
		}
		coords[i] = int32(v)
	}
	return coords, nil
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = func() {
		fmt.Print(helpMessage)
	}
	flag.Parse()

	if *showHelp || flag.NArg() != 2 || flag.Args()[0] != "fetch" {
		flag.Usage()
		os.Exit(0)
	}
	if *runVerbose {
		ezimage.SetLogMode(ezimage.DebugMode)
	} else {
		ezimage.SetLogMode(ezimage.InfoMode)
	}

	imageID, err := strconv.ParseInt(flag.Args()[1], 10, 64)
	if err != nil {
		fmt.Printf("Image id must be an integer, got %q\n", flag.Args()[1])
		os.Exit(1)
	}
	if err := fetch(imageID); err != nil {
		fmt.Printf("Error fetching image %d: %v\n", imageID, err)
		os.Exit(1)
	}
}

func fetch(imageID int64) error {
	startCoords, err := parseCoords(*start)
	if err != nil {
		return err
	}
	axisLengths, err := parseCoords(*lengths)
	if err != nil {
		return err
	}

	conn, err := gateway.Connect(gateway.ConnectionParams{
		User:      *user,
		Group:     *group,
		Host:      *host,
		Port:      *port,
		Secure:    *secure,
		SecureSet: *secure,
	}, "")
	if err != nil {
		return err
	}
	defer conn.Close()

	desc, view, err := pixels.GetImage(conn, imageID, pixels.Region{
		StartCoords:  startCoords,
		AxisLengths:  axisLengths,
		PyramidLevel: *level,
		Pad:          *pad,
	})
	if err != nil {
		return err
	}
	if desc == nil {
		return fmt.Errorf("image %d not found", imageID)
	}

	// The dump is always in canonical order; the sidecar records that.
	raw := view.Bytes()
	compressed := snappy.Encode(nil, raw)
	dumpPath := filepath.Join(*outdir, fmt.Sprintf("image-%d.raw.sz", imageID))
	if err := os.WriteFile(dumpPath, compressed, 0644); err != nil {
		return err
	}
	ezimage.Infof("Wrote %s of pixel data (%s compressed) to %s\n",
		humanize.Bytes(uint64(len(raw))), humanize.Bytes(uint64(len(compressed))), dumpPath)

	meta, err := json.MarshalIndent(sidecar{
		ImageID:   desc.ID,
		Name:      desc.Name,
		PixelType: desc.PixelType.String(),
		DimOrder:  ezimage.CanonicalOrder,
		Shape:     view.Shape(),
		Level:     *level,
	}, "", "  ")
	if err != nil {
		return err
	}
	metaPath := filepath.Join(*outdir, fmt.Sprintf("image-%d.json", imageID))
	return os.WriteFile(metaPath, append(meta, '\n'), 0644)
}
