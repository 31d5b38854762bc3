// Command stylize-web serves the stylizer's upload form.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/gmfennema/tableau-power-point-stylizer/config"
	"github.com/gmfennema/tableau-power-point-stylizer/ocr"
	"github.com/gmfennema/tableau-power-point-stylizer/web"
)

func main() {
	godotenv.Load()

	configPath := flag.String("config", "", "YAML file with default settings")
	hero := flag.String("hero", "hero_image.png", "PNG served at /hero.png")
	flag.Parse()

	batch := config.Default()
	if *configPath != "" {
		if err := config.Load(*configPath, &batch); err != nil {
			log.Fatalf("error loading config: %v", err)
		}
	}
	batch.ApplyEnv()

	rec, err := ocr.New(context.Background(), batch.OCR)
	if err != nil {
		log.Fatalf("error setting up OCR: %v", err)
	}
	if c, ok := rec.(io.Closer); ok {
		defer c.Close()
	}

	r := gin.Default()
	r.MaxMultipartMemory = 64 << 20

	allowedOrigins := []string{"http://localhost:3000"}

	if frontendURL := os.Getenv("FRONTEND_URL"); frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	slog.Info("AllowOrigins URL:", "urls", allowedOrigins)

	r.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Disposition"},
	}))

	web.NewHandler(web.Options{
		Recognizer: rec,
		Defaults:   &batch.Style,
		Layouts:    batch.Layouts,
		HeroPath:   *hero,
	}).Register(r)

	addr := os.Getenv("STYLIZER_ADDR")
	if addr == "" {
		addr = "127.0.0.1:5001"
	}
	slog.Info("listening", "addr", addr, "ocr", batch.OCR.Engine)

	if err := r.Run(addr); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
