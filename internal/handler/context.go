package handler

type ContextKey string

var (
	SubCtxKey     ContextKey = "sub"
	MyInfoCtx     ContextKey = "myInfo"
	UserInfoCtx   ContextKey = "userInfo"
	ProjectCtx    ContextKey = "project"
	TaskCtx       ContextKey = "task"
	CommentCtx    ContextKey = "comment"
	LabelCtx      ContextKey = "label"
	AttachmentCtx ContextKey = "attachment"
)
