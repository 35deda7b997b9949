package dialog

import (
	"fmt"

	"github.com/m3rciful/postbot/core/telegram/format"
)

const (
	msgWelcome          = "Hi! Let's set up your bot.\nFirst, what is your persona's name?"
	msgAlreadySetUp     = "The profile is already set up. Use /menu to see the options."
	msgSetupDone        = "Setup complete! Use /menu to see the options."
	msgChooseOption     = "Choose an option:"
	msgUnrecognized     = "Unrecognized input. Use /menu to see the options."
	msgUnsupported      = "Unsupported action."
	msgFailure          = "Something went wrong while saving. Please try again."
	msgNoTypes          = "There are no post types yet. Add one from /menu."
	msgNoTypesToManage  = "There are no post types to edit."
	msgTypeNotFound     = "Error: post type not found."
	msgExampleNotFound  = "Example not found."
	msgNoExamples       = "This post type has no examples. Add some before generating a post."
	msgNoExamplesToList = "This post type has no examples."
	msgDuplicateType    = "That post type already exists. Try another name."
	msgInvalidTypeName  = "Post type names must be between 1 and 40 bytes long. Try another name."
	msgDuplicateExample = "This example already exists. It was not added again."
	msgEmptyExample     = "The example is empty. Send some text."
	msgBadFormatting    = "Could not read the formatting of that message (overlapping styles). Send it again with simpler formatting."
	msgAskTypeName      = "Send the name of the new post type:"
	msgChooseTypeAdd    = "Choose the post type to add an example to:"
	msgChooseTypePost   = "Choose the post type:"
	msgChooseTypeManage = "Choose the post type to edit:"
	msgChooseField      = "Choose the field to edit:"
	msgAskRename        = "Send the new name for this post type:"
	msgDeleteCancelled  = "Deletion cancelled."
	msgChooseExample    = "Choose the example to edit or delete:"
	msgAskExampleText   = "Send the new text for this example:"
	msgExampleUpdated   = "Example updated."
	msgNothingToAccept  = "There is no post to accept."
	msgNothingToRewrite = "There is no post to rewrite."
	msgAskLanguage      = "Send the language to write posts in:"
)

var setupPrompts = map[Field]string{
	FieldName:        msgWelcome,
	FieldTag:         "Great. Now send the tag (for example: @example):",
	FieldPersonality: "Very good. Write a short description of the persona's personality:",
	FieldServices:    "Now send the services or products offered (comma separated):",
	FieldLanguage:    "Finally, send the language to write posts in (for example: Spanish, English):",
}

var editPrompts = map[Field]string{
	FieldName:        "Send the new name:",
	FieldTag:         "Send the new tag:",
	FieldPersonality: "Send the new personality description:",
	FieldServices:    "Send the new services (comma separated):",
	FieldLanguage:    msgAskLanguage,
}

var fieldLabels = map[Field]string{
	FieldName:        "Name",
	FieldTag:         "Tag",
	FieldPersonality: "Personality",
	FieldServices:    "Services",
	FieldLanguage:    "Language",
}

func q(s string) string { return format.Escape(s) }

func msgTypeAdded(name string) string {
	return fmt.Sprintf("Post type '%s' added. Use /menu for more options.", q(name))
}

func msgExampleAdded(name string) string {
	return fmt.Sprintf("Example added to post type '%s'. You can keep adding more or use /menu.", q(name))
}

func msgAskExample(name string) string {
	return fmt.Sprintf("Send me an example for the post type '%s':", q(name))
}

func msgAskTopic(name string) string {
	return fmt.Sprintf("Write the topic for the '%s' post:", q(name))
}

func msgFieldUpdated(f Field) string {
	return fieldLabels[f] + " updated."
}

func msgTypeOptions(name string) string {
	return fmt.Sprintf("Options for post type '%s':", q(name))
}

func msgConfirmDelete(name string) string {
	return fmt.Sprintf("Delete post type '%s'? All its examples will be deleted too.", q(name))
}

func msgTypeDeleted(name string) string {
	return fmt.Sprintf("Post type '%s' deleted.", q(name))
}

func msgTypeRenamed(name string) string {
	return fmt.Sprintf("The post type was renamed to '%s'.", q(name))
}

func msgSelectedExample(html string) string {
	return "Selected example:\n" + format.SanitizeHTML(html) + "\nWhat do you want to do?"
}

func msgExampleDeleted(html string) string {
	return "Example deleted:\n" + format.SanitizeHTML(html)
}

func msgAccepted(html string) string {
	return "Post accepted:\n\n" + html
}
