package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/LevitatingBusinessMan/openai-go"
	"github.com/LevitatingBusinessMan/openai-go/stream"
)

type chatOptions struct {
	Model       string
	MaxTokens   int
	Temperature float64
	System      string
	NoStream    bool
	Markdown    bool
	Batch       bool
}

func chatCommand(global *globalOptions) *cobra.Command {
	opts := &chatOptions{}
	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send a chat message and stream the reply",
		Long: "Send a chat message and stream the reply.\n\n" +
			"The prompt is taken from the arguments, or from stdin when none are given.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			client, err := newClient(cmd, global)
			if err != nil {
				return err
			}

			chatArgs := opts.arguments(prompt)
			if cmd.Flags().Changed("temperature") {
				chatArgs.Temperature = &opts.Temperature
			}

			r := newRenderer(cmd.OutOrStdout(), opts.Markdown)
			if opts.NoStream {
				return runChat(cmd.Context(), client, chatArgs, r)
			}
			return runChatStream(cmd.Context(), client, chatArgs, r, opts.Batch, cmd.ErrOrStderr())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.Model, "model", "m", "gpt-4o-mini", "Model to use")
	flags.IntVar(&opts.MaxTokens, "max-tokens", 0, "Maximum tokens to generate (0 for the model default)")
	flags.Float64Var(&opts.Temperature, "temperature", 1, "Sampling temperature between 0 and 2")
	flags.StringVar(&opts.System, "system", "", "System message sent before the prompt")
	flags.BoolVar(&opts.NoStream, "no-stream", false, "Wait for the whole response instead of streaming")
	flags.BoolVar(&opts.Markdown, "markdown", false, "Render the response as markdown once complete")
	flags.BoolVar(&opts.Batch, "batch", false, "Print everything decoded from each network read at once")
	return cmd
}

func (o *chatOptions) arguments(prompt string) openai.ChatArguments {
	var messages []openai.ChatMessage
	if o.System != "" {
		messages = append(messages, openai.ChatMessage{Role: openai.RoleSystem, Content: o.System})
	}
	messages = append(messages, openai.ChatMessage{Role: openai.RoleUser, Content: prompt})

	args := openai.NewChatArguments(o.Model, messages...)
	if o.MaxTokens > 0 {
		args.MaxTokens = &o.MaxTokens
	}
	return args
}

func runChat(ctx context.Context, client *openai.Client, args openai.ChatArguments, r *renderer) error {
	start := time.Now()
	completion, err := client.CreateChat(ctx, args)
	if err != nil {
		return err
	}
	if err := r.write(completion.String()); err != nil {
		return err
	}
	if err := r.flush(); err != nil {
		return err
	}

	s := summary{Tokens: completion.Usage.TotalTokens, Elapsed: time.Since(start)}
	if len(completion.Choices) > 0 {
		s.FinishReason = completion.Choices[0].FinishReason
	}
	return r.footer(s)
}

// runChatStream pumps the stream on one goroutine and renders on another.
func runChatStream(ctx context.Context, client *openai.Client, args openai.ChatArguments, r *renderer, batch bool, stderr io.Writer) error {
	start := time.Now()
	s, err := client.CreateChatStream(ctx, args)
	if err != nil {
		return err
	}
	defer s.Close()

	p := &chatPump{stream: s, pieces: make(chan string, 16), stderr: stderr}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(p.pieces)
		if batch {
			return p.batches(gctx)
		}
		return p.events(gctx)
	})
	g.Go(func() error {
		return r.consume(p.pieces)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	p.summary.Elapsed = time.Since(start)
	return r.footer(p.summary)
}

// chatPump moves content from a ChatStream to the renderer.
type chatPump struct {
	stream  *openai.ChatStream
	pieces  chan string
	stderr  io.Writer
	summary summary
}

func (p *chatPump) events(ctx context.Context) error {
	for res := range stream.Channel(ctx, p.stream.Decoder, 8) {
		if res.Err != nil {
			if err := p.skip(res.Err); err != nil {
				return err
			}
			continue
		}
		if err := p.send(ctx, p.observe(res.Event)); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (p *chatPump) batches(ctx context.Context) error {
	for {
		batch, err := p.stream.NextBatch(ctx)

		var sb strings.Builder
		for _, chunk := range batch {
			sb.WriteString(p.observe(chunk))
		}
		if sendErr := p.send(ctx, sb.String()); sendErr != nil {
			return sendErr
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if err := p.skip(err); err != nil {
				return err
			}
		}
	}
}

// observe records chunk metadata and returns its content.
func (p *chatPump) observe(chunk openai.ChatChunk) string {
	p.summary.Chunks++
	if chunk.Usage != nil {
		p.summary.Tokens = chunk.Usage.TotalTokens
	}
	for _, choice := range chunk.Choices {
		if choice.Index == 0 && choice.FinishReason != nil {
			p.summary.FinishReason = *choice.FinishReason
		}
	}
	return chunk.String()
}

// skip reports a frame error and returns nil, or returns a fatal error.
// Keep-alive comments pass quietly.
func (p *chatPump) skip(err error) error {
	if stream.IsFatal(err) {
		return err
	}
	if errors.Is(err, stream.ErrCommentFrame) {
		return nil
	}
	p.summary.Skipped++
	fmt.Fprintf(p.stderr, "warning: %v\n", err)
	return nil
}

func (p *chatPump) send(ctx context.Context, piece string) error {
	if piece == "" {
		return nil
	}
	select {
	case p.pieces <- piece:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readPrompt joins the arguments, or reads stdin when there are none and stdin
// is not a terminal.
func readPrompt(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errors.New("no prompt given")
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("no prompt given")
	}
	return prompt, nil
}
