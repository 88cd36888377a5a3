package llm

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/bookforge/internal/outline"
)

// ChapterContext carries the rolling summary of the previously generated
// chapter into the next chapter's prompt.
type ChapterContext struct {
	Title   string
	Content string
}

// BuildChapterPrompt assembles the generation prompt for one outline node:
// the full outline, the node's focus beats, and the previous chapter's
// context summary for narrative continuity.
func BuildChapterPrompt(chapters []*outline.Node, current *outline.Node, previous *ChapterContext, tone string) string {
	var focus []string
	if sections := current.SectionTitles(); len(sections) > 0 {
		focus = append(focus, "Chapter focus checklist:\n- "+strings.Join(sections, "\n- "))
	}
	var context []string
	if previous != nil {
		context = append(context,
			"Previous chapter context:\n"+
				"Title: "+previous.Title+"\n"+
				"Content:\n"+previous.Content+"\n"+
				"Carry forward characters, narratives, and themes from the previous chapter.")
	}
	parts := []string{
		tonePreface(tone) +
			"Write the next part of the book based strictly on the outline. " +
			"Cover the themes and plot beats listed for the current item. " +
			"Do not introduce new plot threads that are not supported by the outline. " +
			"Do not jump ahead to future outline items. " +
			"Use only the characters, locations, and events mentioned in the outline. " +
			"Return only markdown content for the requested item.",
		"Outline:\n" + outline.Text(chapters),
		fmt.Sprintf("Current item: %s (%s).", current.Title, current.Kind),
	}
	if len(focus) > 0 {
		parts = append(parts, strings.Join(focus, "\n\n"))
	}
	if len(context) > 0 {
		parts = append(parts, strings.Join(context, "\n\n"))
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// BuildContextSummaryPrompt asks for a concise continuity summary of a
// finished chapter, used as context for the next one.
func BuildContextSummaryPrompt(title, content, tone string) string {
	return tonePreface(tone) +
		"Generate a concise context summary for the next chapter. " +
		"Focus on characters, narratives, themes, and unresolved threads. " +
		"Return only the summary text.\n\n" +
		"Chapter title: " + title + "\n\n" +
		"Chapter content:\n" + content
}

// BuildSynopsisPrompt asks for a back-cover synopsis of the whole book.
func BuildSynopsisPrompt(title, outlineText, content string) string {
	return "Write a back cover synopsis for this book. " +
		"Keep it engaging and concise, avoiding spoilers beyond the setup. " +
		"Use the outline to guide the synopsis structure. " +
		"Return only the synopsis text.\n\n" +
		"Book title: " + title + "\n\n" +
		"Outline:\n" + outlineText + "\n\n" +
		"Book content:\n" + content
}

// BuildBookTitlePrompt asks for a book title distinct from the first
// chapter's name.
func BuildBookTitlePrompt(outlineText, firstChapterTitle string) string {
	return "Generate a compelling book title based on the outline. " +
		"Do not reuse the first chapter name as the title. " +
		"Return only the title text.\n\n" +
		"First chapter: " + firstChapterTitle + "\n\n" +
		"Outline:\n" + outlineText
}

// BuildOutlinePrompt asks the model to draft a full outline from a premise.
func BuildOutlinePrompt(premise string) string {
	return "Create a detailed book outline in markdown. " +
		"Include a book title, chapters, and optional sections. " +
		"Use # for the title, ## for chapters, and ### for sections. " +
		"Return only markdown.\n\n" +
		"Prompt:\n" + strings.TrimSpace(premise)
}

// BuildOutlineRevisionPrompt asks for a revised outline.
func BuildOutlineRevisionPrompt(outlineText, revision string) string {
	return "Revise the following book outline based on the revision prompt. " +
		"Return the full updated outline in markdown with the same structure. " +
		"Do not include commentary.\n\n" +
		"Revision prompt:\n" + strings.TrimSpace(revision) + "\n\n" +
		"Current outline:\n" + strings.TrimSpace(outlineText)
}

// BuildExpandPrompt assembles the rewrite prompt for a single paragraph
// with its neighbor context.
func BuildExpandPrompt(current, previous, next, sectionHeading, tone string) string {
	var context []string
	if sectionHeading != "" {
		context = append(context, "Section heading: "+sectionHeading)
	}
	if previous != "" {
		context = append(context, "Previous section/paragraph:\n"+previous)
	}
	if next != "" {
		context = append(context, "Next section/paragraph:\n"+next)
	}
	parts := []string{
		tonePreface(tone) +
			"Expand the paragraph below into richer prose. " +
			"Preserve the meaning, events, and voice. " +
			"Do not add headings, lists, or commentary. " +
			"Return only the rewritten paragraph.",
	}
	if len(context) > 0 {
		parts = append(parts, strings.Join(context, "\n\n"))
	}
	parts = append(parts, "Current paragraph/section:\n"+current)
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// BuildGenrePrompt asks for genre tags as JSON.
func BuildGenrePrompt(synopsis string) string {
	return "You are tagging book genres. Based on the synopsis below, return a JSON object " +
		"with a key \"genres\" that contains an array of 1-3 genre strings. " +
		"Return only JSON.\n\n" +
		"Synopsis:\n" + strings.TrimSpace(synopsis)
}

// BuildCoverSummaryPrompt condenses text into a visual description for
// cover art.
func BuildCoverSummaryPrompt(text, contextLabel string) string {
	return fmt.Sprintf("Summarize the following %s into a concise visual description "+
		"for cover art. Focus on vivid imagery, setting, characters, and mood. "+
		"Keep it under 400 characters and limit to 2-3 sentences. "+
		"Return plain text only.\n\n%s", contextLabel, text)
}

// BuildImageThemePrompt asks for a cohesive visual theme for video imagery.
func BuildImageThemePrompt(bookTitle, outlineText string) string {
	return "Define a cohesive visual theme for imagery in a book video. " +
		"Use 1-2 sentences describing art style, palette, lighting, era, and mood. " +
		"Avoid summarizing plot details or listing multiple options.\n\n" +
		"Book title: " + bookTitle + "\n" +
		"Outline:\n" + outlineText
}

// BuildParagraphImagePrompt asks for one image description for a paragraph,
// consistent with the theme and the previous image.
func BuildParagraphImagePrompt(theme, paragraph, lastImage string) string {
	if lastImage == "" {
		lastImage = "None yet."
	}
	return "You are describing a single image for a book video.\n" +
		"Imagery theme: " + theme + "\n" +
		"Previous image: " + lastImage + "\n" +
		"Paragraph: " + paragraph + "\n\n" +
		"Describe one image that represents the paragraph, stays consistent with the " +
		"theme, and flows logically from the previous image. " +
		"Return 1-2 sentences. Do not use bullet points, quotes, or mention text."
}

func tonePreface(tone string) string {
	if tone == "" {
		return ""
	}
	return strings.TrimSpace(tone) + "\n\n"
}
