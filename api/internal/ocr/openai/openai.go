package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"

	"image-to-text/api/internal/ocr"
	"image-to-text/api/internal/util"
)

const DefaultModel = "gpt-4o-mini"

const systemPrompt = `You are an OCR assistant. Transcribe every piece of text visible in the image.
Keep the reading order and line breaks. Do not translate, summarize or invent text.
If nothing is readable, answer with an empty message.`

type Engine struct {
	APIKey   string
	Model    string
	BaseURL  string
	Logprobs bool

	client openai.Client
	system string
}

// New builds an engine for the chat completions API. baseURL may point
// at any OpenAI-compatible endpoint; empty means the public API.
func New(key, model, baseURL string, logprobs bool, opts ...openaiopt.RequestOption) *Engine {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	clientOpts := []openaiopt.RequestOption{
		openaiopt.WithAPIKey(key),
		openaiopt.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}),
		openaiopt.WithMaxRetries(2),
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(baseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &Engine{
		APIKey:   key,
		Model:    model,
		BaseURL:  baseURL,
		Logprobs: logprobs,
		client:   openai.NewClient(clientOpts...),
		system:   util.LoadPrompt("ocr", "openai", systemPrompt),
	}
}

func (e *Engine) Name() string     { return "openai" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if e.APIKey == "" {
		return ocr.Result{}, errors.New("OPENAI_API_KEY not set")
	}
	if len(in.Image) == 0 {
		return ocr.Result{}, errors.New("openai: empty image")
	}
	model := e.Model
	if in.Model != "" {
		model = in.Model
	}

	resp, err := e.client.Chat.Completions.New(ctx, e.buildParams(model, in))
	if err != nil {
		return ocr.Result{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ocr.Result{}, errors.New("openai: empty choices")
	}
	choice := resp.Choices[0]

	res := ocr.Result{
		Text:  util.StripCodeFences(choice.Message.Content),
		Model: model,
	}
	if e.Logprobs {
		lps := make([]float64, 0, len(choice.Logprobs.Content))
		for _, t := range choice.Logprobs.Content {
			lps = append(lps, t.Logprob)
		}
		res.Confidence = confidenceFromLogprobs(lps)
	}
	return res, nil
}

func (e *Engine) buildParams(model string, in ocr.Input) openai.ChatCompletionNewParams {
	mime := util.PickMIME(in.MIME, "", in.Image)
	user := "Transcribe the text in this image."
	if len(in.Languages) > 0 {
		user += " Expected languages: " + strings.Join(in.Languages, ", ") + "."
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Temperature: openai.Float(0),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(e.system),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
							{OfText: &openai.ChatCompletionContentPartTextParam{Text: user}},
							{OfImageURL: &openai.ChatCompletionContentPartImageParam{
								ImageURL: openai.ChatCompletionContentPartImageImageURLParam{
									URL:    util.MakeDataURL(mime, in.Image),
									Detail: "high",
								},
							}},
						},
					},
				},
			},
		},
	}
	if e.Logprobs {
		params.Logprobs = openai.Bool(true)
	}
	return params
}

// confidenceFromLogprobs maps the mean token log-probability to 0..100.
func confidenceFromLogprobs(lps []float64) *float64 {
	if len(lps) == 0 {
		return nil
	}
	var sum float64
	for _, lp := range lps {
		sum += lp
	}
	c := math.Exp(sum/float64(len(lps))) * 100
	return ocr.Confidence(math.Max(0, math.Min(100, c)))
}
