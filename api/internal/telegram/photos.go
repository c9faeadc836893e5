package telegram

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"image-to-text/api/internal/imageprep"
	"image-to-text/api/internal/util"
)

type fileRef struct {
	FileID string
	MIME   string
}

// imageSource picks the largest photo size or an image document.
func imageSource(msg *tgbotapi.Message) (fileRef, bool) {
	if len(msg.Photo) > 0 {
		ph := msg.Photo[len(msg.Photo)-1]
		return fileRef{FileID: ph.FileID, MIME: "image/jpeg"}, true
	}
	if d := msg.Document; d != nil && util.IsImageMIME(d.MimeType) {
		return fileRef{FileID: d.FileID, MIME: d.MimeType}, true
	}
	return fileRef{}, false
}

func (r *Router) acceptImage(msg *tgbotapi.Message, src fileRef) {
	cid := msg.Chat.ID
	file, err := r.Bot.GetFile(tgbotapi.FileConfig{FileID: src.FileID})
	if err != nil {
		r.sendError(cid, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	img, err := download(ctx, fmt.Sprintf(r.FileEndpoint, r.Token, file.FilePath))
	if err != nil {
		r.sendError(cid, err)
		return
	}

	if msg.MediaGroupID == "" {
		r.send(cid, acceptedText)
		r.convertImage(cid, img, src.MIME)
		return
	}

	// album pages arrive as separate updates; collect them for a moment
	key := "grp:" + msg.MediaGroupID
	bi, _ := r.state.batches.LoadOrStore(key, &photoBatch{
		ChatID: cid, Key: key, MediaGroupID: msg.MediaGroupID, images: make([][]byte, 0, 4),
	})
	b := bi.(*photoBatch)

	b.mu.Lock()
	b.images = append(b.images, img)
	b.mimes = append(b.mimes, src.MIME)
	first := len(b.images) == 1
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(debounce, func() {
		if err := r.pool.Submit(func() { r.processBatch(key) }); err != nil {
			r.log.Warnw("album dropped", "key", key, "err", err)
		}
	})
	b.mu.Unlock()

	if first {
		r.send(cid, "Album received. Send all pages, I will stitch them before converting.")
	}
}

func (r *Router) processBatch(key string) {
	bi, ok := r.state.batches.LoadAndDelete(key)
	if !ok {
		return
	}
	b := bi.(*photoBatch)

	b.mu.Lock()
	images := append([][]byte(nil), b.images...)
	mimes := append([]string(nil), b.mimes...)
	chatID := b.ChatID
	b.mu.Unlock()

	switch len(images) {
	case 0:
		return
	case 1:
		r.convertImage(chatID, images[0], mimes[0])
		return
	}

	merged, err := combineAsOne(images, r.Svc.MaxPixels)
	if err != nil {
		r.sendError(chatID, fmt.Errorf("stitch album: %w", err))
		return
	}
	r.convertImage(chatID, merged, "image/jpeg")
}

// combineAsOne stacks images vertically, centred on a white page. Scaling
// is left to the conversion service; headers are checked first so the page
// never exceeds imageprep.DecodeCeiling(maxPixels).
func combineAsOne(images [][]byte, maxPixels int) ([]byte, error) {
	ceiling := imageprep.DecodeCeiling(maxPixels)
	maxW, sumH := 0, 0
	for _, b := range images {
		cfg, _, err := imageprep.CheckSize(b, ceiling)
		if err != nil {
			return nil, err
		}
		maxW = max(maxW, cfg.Width)
		sumH += cfg.Height
	}
	if maxW == 0 || sumH == 0 {
		return nil, fmt.Errorf("empty images")
	}
	if int64(maxW)*int64(sumH) > int64(ceiling) {
		return nil, fmt.Errorf("%w: album page %dx%d", imageprep.ErrTooLarge, maxW, sumH)
	}

	decoded := make([]image.Image, 0, len(images))
	for _, b := range images {
		img, _, err := imageprep.Decode(b, ceiling)
		if err != nil {
			return nil, err
		}
		decoded = append(decoded, img)
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxW, sumH))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	y := 0
	for _, img := range decoded {
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		x := (maxW - w) / 2
		draw.Draw(dst, image.Rect(x, y, x+w, y+h), img, img.Bounds().Min, draw.Over)
		y += h
	}

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

var httpc = &http.Client{Timeout: 60 * time.Second}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("download status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}
