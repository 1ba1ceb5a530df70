package openai

// jlexer decoders for the streaming hot path: one ChatChunk per frame, no reflection.

import (
	"fmt"

	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
)

var _ easyjson.Unmarshaler = (*ChatChunk)(nil)

// UnmarshalEasyJSON supports easyjson.Unmarshaler interface
func (v *ChatChunk) UnmarshalEasyJSON(l *jlexer.Lexer) {
	easyjsonDecodeChatChunk(l, v)
}

// UnmarshalJSON supports json.Unmarshaler interface
func (v *ChatChunk) UnmarshalJSON(data []byte) error {
	r := jlexer.Lexer{Data: data}
	easyjsonDecodeChatChunk(&r, v)
	return r.Error()
}

func easyjsonDecodeChatChunk(in *jlexer.Lexer, out *ChatChunk) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "id":
			out.ID = string(in.String())
		case "object":
			out.Object = string(in.String())
		case "created":
			out.Created = int64(in.Int64())
		case "model":
			out.Model = string(in.String())
		case "choices":
			in.Delim('[')
			if out.Choices == nil {
				if !in.IsDelim(']') {
					out.Choices = make([]ChunkChoice, 0, 1)
				} else {
					out.Choices = []ChunkChoice{}
				}
			} else {
				out.Choices = (out.Choices)[:0]
			}
			for !in.IsDelim(']') {
				var v1 ChunkChoice
				easyjsonDecodeChunkChoice(in, &v1)
				out.Choices = append(out.Choices, v1)
				in.WantComma()
			}
			in.Delim(']')
		case "usage":
			if out.Usage == nil {
				out.Usage = new(ChatUsage)
			}
			easyjsonDecodeChatUsage(in, out.Usage)
		case "error":
			out.apiErr = easyjsonDecodeInBandError(in)
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

func easyjsonDecodeChunkChoice(in *jlexer.Lexer, out *ChunkChoice) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "index":
			out.Index = int(in.Int())
		case "delta":
			easyjsonDecodeChatDelta(in, &out.Delta)
		case "finish_reason":
			if out.FinishReason == nil {
				out.FinishReason = new(string)
			}
			*out.FinishReason = string(in.String())
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

func easyjsonDecodeChatDelta(in *jlexer.Lexer, out *ChatDelta) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "role":
			if out.Role == nil {
				out.Role = new(string)
			}
			*out.Role = string(in.String())
		case "content":
			if out.Content == nil {
				out.Content = new(string)
			}
			*out.Content = string(in.String())
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

func easyjsonDecodeChatUsage(in *jlexer.Lexer, out *ChatUsage) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "prompt_tokens":
			out.PromptTokens = int(in.Int())
		case "completion_tokens":
			out.CompletionTokens = int(in.Int())
		case "total_tokens":
			out.TotalTokens = int(in.Int())
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}

// easyjsonDecodeInBandError reads the object of an {"error": {...}} frame.
func easyjsonDecodeInBandError(in *jlexer.Lexer) *APIError {
	body := apiErrorBody{Error: &apiErrorDetail{}}

	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeFieldName(false)
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "message":
			body.Error.Message = string(in.String())
		case "type":
			body.Error.Type = string(in.String())
		case "param":
			body.Error.Param = string(in.String())
		case "code":
			body.Error.Code = in.Interface()
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')

	if !in.Ok() {
		return nil
	}
	if body.Error.Message == "" {
		body.Error.Message = fmt.Sprintf("stream error (type %q)", body.Error.Type)
	}
	return newAPIError(0, body, nil)
}
