package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/yungbote/blockstore/internal/app"
	"github.com/yungbote/blockstore/internal/keys"
	"github.com/yungbote/blockstore/internal/olx"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  blockstore import <olx-file>
  blockstore export <course-key> <out-file>
  blockstore overview <course-key>`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	a, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	log := a.Log
	ctx := context.Background()
	actor := uuid.New()

	switch os.Args[1] {
	case "import":
		if len(os.Args) != 3 {
			usage()
		}
		f, err := os.Open(os.Args[2])
		if err != nil {
			log.Fatal("open import file", "error", err)
		}
		defer f.Close()
		root, err := olx.Parse(f)
		if err != nil {
			log.Fatal("parse olx", "error", err)
		}
		course, err := a.Porter.Import(ctx, actor, root)
		if err != nil {
			log.Fatal("import failed", "error", err)
		}
		log.Info("import complete", "course", course.String())

	case "export":
		if len(os.Args) != 4 {
			usage()
		}
		course, err := keys.ParseCourseKey(os.Args[2])
		if err != nil {
			log.Fatal("bad course key", "error", err)
		}
		node, err := a.Porter.Export(ctx, course)
		if err != nil {
			log.Fatal("export failed", "error", err)
		}
		out, err := os.Create(os.Args[3])
		if err != nil {
			log.Fatal("create output", "error", err)
		}
		defer out.Close()
		if err := olx.Write(out, node); err != nil {
			log.Fatal("write olx", "error", err)
		}
		log.Info("export complete", "course", course.ID(), "file", os.Args[3])

	case "overview":
		if len(os.Args) != 3 {
			usage()
		}
		course, err := keys.ParseCourseKey(os.Args[2])
		if err != nil {
			log.Fatal("bad course key", "error", err)
		}
		row, err := a.Overview.Get(ctx, course)
		if err != nil {
			log.Fatal("overview failed", "error", err)
		}
		log.Info("overview",
			"course", row.CourseID,
			"display_name", row.DisplayName,
			"self_paced", row.SelfPaced,
			"published_version", row.PublishedVersion,
		)

	default:
		usage()
	}
}
