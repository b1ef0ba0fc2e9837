package seed

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/repository"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/utils"
)

var projectNames = []string{
	"前台值班系统改造", "新生迎新网站", "内部知识库迁移", "机房巡检流程数字化",
	"打印服务自助化", "假勤系统对接", "网络报修平台", "会议室预约系统",
}

var taskNames = []string{
	"整理需求文档", "设计数据库表结构", "搭建开发环境", "实现登录接口",
	"编写单元测试", "部署测试环境", "撰写使用手册", "收集用户反馈",
	"修复已知缺陷", "准备验收演示",
}

var labelNames = []string{"紧急", "例行", "文档", "开发", "测试", "运维"}

var labelColors = []domain.LabelColor{
	domain.LabelColorRed, domain.LabelColorOrange, domain.LabelColorYellow, domain.LabelColorGreen,
}

var commentContents = []string{
	"收到，我来跟进。", "这个需求还要再确认一下。", "已经完成初版，等待评审。",
	"测试环境复现了，明天修。", "进度正常，预计按期完成。",
}

// SeedUsers 插入 n 个随机用户
func SeedUsers(r *repository.Repository, password string, emailDomain string, n int) int {
	cnt := 0
	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomUser(password, emailDomain)
		if err != nil {
			slog.Error("无法生成随机用户", "error", err)
			continue
		}
		if err := r.CreateUser(user); err != nil {
			slog.Error("无法插入用户", "error", err)
			continue
		}
		cnt++
	}
	return cnt
}

// SeedProjects 插入 n 个随机项目，owner 和成员从现有用户中随机挑选
func SeedProjects(r *repository.Repository, n int) int {
	users, err := r.GetAllUsers()
	if err != nil {
		slog.Error("无法获取用户列表", "error", err)
		return 0
	}
	if len(users) == 0 {
		slog.Error("数据库中没有用户，请先插入用户")
		return 0
	}

	cnt := 0
	for i := 0; i < n; i++ {
		owner := users[rand.Intn(len(users))]
		start := time.Now().AddDate(0, 0, -rand.Intn(30))

		project := &domain.Project{
			Name:        fmt.Sprintf("%s（%d期）", projectNames[rand.Intn(len(projectNames))], rand.Intn(9)+1),
			Description: "随机生成的测试项目",
			StartDate:   start,
			EndDate:     start.AddDate(0, rand.Intn(6)+1, 0),
			Status:      domain.ProjectStatusInProgress,
			OwnerID:     owner.ID,
		}
		if err := r.CreateProject(project); err != nil {
			slog.Error("无法插入项目", "error", err)
			continue
		}

		// 再随机拉几个人进项目
		for j := 0; j < rand.Intn(4)+2; j++ {
			member := users[rand.Intn(len(users))]
			if err := r.AddProjectEmployee(project.ID, member.ID); err != nil {
				slog.Error("无法添加项目成员", "error", err)
			}
		}
		cnt++
	}
	return cnt
}

// SeedTasks 给每个未删除项目插入 n 个随机任务，指派给项目内的员工
func SeedTasks(r *repository.Repository, n int) int {
	projects, err := r.GetAllProjects(false)
	if err != nil {
		slog.Error("无法获取项目列表", "error", err)
		return 0
	}

	cnt := 0
	for _, project := range projects {
		employees, err := r.GetProjectEmployees(project.ID)
		if err != nil || len(employees) == 0 {
			continue
		}

		for i := 0; i < n; i++ {
			assignee := employees[rand.Intn(len(employees))]
			task := &domain.Task{
				ProjectID:   project.ID,
				AssigneeID:  assignee.ID,
				Name:        taskNames[rand.Intn(len(taskNames))],
				Description: "随机生成的测试任务",
				Priority:    []domain.TaskPriority{domain.TaskPriorityLow, domain.TaskPriorityMedium, domain.TaskPriorityHigh}[rand.Intn(3)],
				Status:      domain.TaskStatusNotStarted,
				DueDate:     time.Now().AddDate(0, 0, rand.Intn(14)+1),
			}
			if err := r.CreateTask(task); err != nil {
				slog.Error("无法插入任务", "error", err)
				continue
			}
			cnt++
		}
	}
	return cnt
}

// SeedLabelsAndComments 给每个任务的被指派人插入若干标签和评论
func SeedLabelsAndComments(r *repository.Repository) int {
	projects, err := r.GetAllProjects(false)
	if err != nil {
		slog.Error("无法获取项目列表", "error", err)
		return 0
	}

	cnt := 0
	for _, project := range projects {
		tasks, err := r.GetTasksByProject(project.ID)
		if err != nil {
			slog.Error("无法获取任务列表", "error", err)
			continue
		}

		for _, task := range tasks {
			label := &domain.Label{
				OwnerID: task.AssigneeID,
				Name:    labelNames[rand.Intn(len(labelNames))],
				Color:   labelColors[rand.Intn(len(labelColors))],
			}
			if err := r.CreateLabel(label); err != nil {
				slog.Error("无法插入标签", "error", err)
				continue
			}
			if err := r.AttachLabel(task.ID, label.ID); err != nil {
				slog.Error("无法给任务贴标签", "error", err)
				continue
			}

			comment := &domain.Comment{
				TaskID:   task.ID,
				AuthorID: task.AssigneeID,
				Content:  commentContents[rand.Intn(len(commentContents))],
			}
			if err := r.CreateComment(comment); err != nil {
				slog.Error("无法插入评论", "error", err)
				continue
			}
			cnt++
		}
	}
	return cnt
}
