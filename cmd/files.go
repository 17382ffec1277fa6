package main

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"lifecal/internal/models"
)

func fileCommand() *cli.Command {
	return &cli.Command{
		Name:  "file",
		Usage: "Track documents and folders.",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Record a file. With --path, name, size and type are read from disk.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "path"},
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "type"},
					&cli.Int64Flag{Name: "size"},
					&cli.StringFlag{Name: "folder", Usage: "ID of the folder to put the file in"},
				},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					f := models.File{
						Name:     c.String("name"),
						Type:     c.String("type"),
						Size:     c.Int64("size"),
						FolderID: c.String("folder"),
					}
					if path := c.String("path"); path != "" {
						info, err := os.Stat(path)
						if err != nil {
							return fmt.Errorf("failed to read %s: %w", path, err)
						}
						if info.IsDir() {
							return fmt.Errorf("%s is a directory", path)
						}
						if f.Name == "" {
							f.Name = info.Name()
						}
						if !c.IsSet("size") {
							f.Size = info.Size()
						}
						if f.Type == "" {
							f.Type = mime.TypeByExtension(filepath.Ext(path))
						}
					}
					f, err := r.store.AddFile(f)
					if err != nil {
						return err
					}
					fmt.Printf("Added file %s\n", f.ID)
					return nil
				}),
			},
			{
				Name: "list",
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					files, err := r.store.Files()
					if err != nil {
						return err
					}
					for _, f := range files {
						fmt.Printf("%-36s %10d %-24s %s\n", f.ID, f.Size, f.Type, f.Name)
					}
					stats, err := r.store.FileStats()
					if err != nil {
						return err
					}
					fmt.Printf("%d files, %d bytes, %d folders\n", stats.TotalFiles, stats.TotalSize, stats.TotalFolders)
					return nil
				}),
			},
			{
				Name:  "delete",
				Flags: []cli.Flag{idFlag()},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					if err := r.store.DeleteFile(c.String("id")); err != nil {
						return err
					}
					fmt.Println("File deleted.")
					return nil
				}),
			},
			{
				Name:  "folder",
				Usage: "Create a folder, or list folders when no name is given.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name"},
				},
				Action: withRuntime(func(c *cli.Context, r *runtime) error {
					if name := c.String("name"); name != "" {
						folder, err := r.store.AddFolder(models.Folder{Name: name})
						if err != nil {
							return err
						}
						fmt.Printf("Added folder %s\n", folder.ID)
						return nil
					}
					folders, err := r.store.Folders()
					if err != nil {
						return err
					}
					for _, f := range folders {
						fmt.Printf("%-36s %3d files  %s\n", f.ID, len(f.Files), f.Name)
					}
					return nil
				}),
			},
		},
	}
}
