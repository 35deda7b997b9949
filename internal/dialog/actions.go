package dialog

// Button action tokens.
const (
	ActionMenu          = "menu"
	ActionAddType       = "add_type"
	ActionAddExample    = "add_example"
	ActionExampleFor    = "example_for"
	ActionCreatePost    = "create_post"
	ActionPostFor       = "post_for"
	ActionEditProfile   = "edit_profile"
	ActionEditField     = "edit_field"
	ActionSetLanguage   = "set_language"
	ActionManageTypes   = "manage_types"
	ActionManageType    = "manage_type"
	ActionRenameType    = "rename_type"
	ActionDeleteType    = "delete_type"
	ActionConfirmDelete = "confirm_delete"
	ActionCancelDelete  = "cancel_delete"
	ActionListExamples  = "list_examples"
	ActionPickExample   = "pick_example"
	ActionEditExample   = "edit_example"
	ActionDeleteExample = "delete_example"
	ActionAcceptPost    = "accept_post"
	ActionRewritePost   = "rewrite_post"
)

// Actions lists every token HandleAction understands.
func Actions() []string {
	return []string{
		ActionMenu, ActionAddType, ActionAddExample, ActionExampleFor, ActionCreatePost,
		ActionPostFor, ActionEditProfile, ActionEditField, ActionSetLanguage, ActionManageTypes,
		ActionManageType, ActionRenameType, ActionDeleteType, ActionConfirmDelete, ActionCancelDelete,
		ActionListExamples, ActionPickExample, ActionEditExample, ActionDeleteExample,
		ActionAcceptPost, ActionRewritePost,
	}
}
