package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/actionlink"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/filehost"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/handler"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/mailqueue"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/notifier"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/repository"
	"github.com/sysu-ecnc-dev/task-manager/backend/internal/token"
	"golang.org/x/crypto/bcrypt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		return
	}

	/**********************************************
	 * 连接数据库
	 **********************************************/
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancelPing()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(pingCtx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	/**********************************************
	 * 创建 repository
	 **********************************************/
	repo := repository.NewRepository(cfg, dbpool)

	/**********************************************
	 * 确保数据库中存在初始总监
	 **********************************************/
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.InitialSupervisor.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("无法生成初始总监密码哈希", "error", err)
		return
	}
	initialSupervisor := &domain.User{
		Username:     cfg.InitialSupervisor.Username,
		PasswordHash: string(passwordHash),
		FullName:     cfg.InitialSupervisor.FullName,
		Email:        cfg.InitialSupervisor.Email,
		Role:         domain.RoleSupervisor,
		Enabled:      true,
	}
	if err := repo.CreateUser(initialSupervisor); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "users_username_key":
				// 如果返回这个错误，说明数据库中已经存在初始总监，不处理
			default:
				logger.Error("无法创建初始总监", "error", err)
				return
			}
		default:
			logger.Error("无法创建初始总监", "error", err)
			return
		}
	}

	/**********************************************
	 * 连接 rabbitmq
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 rabbitmq", "error", err)
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法建立通道", "error", err)
		return
	}
	defer ch.Close()

	mailQueue, err := mailqueue.NewAMQPQueue(cfg, ch)
	if err != nil {
		logger.Error("无法声明邮件队列", "error", err)
		return
	}

	/**********************************************
	 * 连接 redis
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	/**********************************************
	 * 创建令牌管理器和操作链接存储
	 **********************************************/
	tokens := token.NewManager(cfg)
	links := actionlink.NewStore(actionlink.NewRedisKV(rdb), tokens)

	/**********************************************
	 * 创建 handler
	 **********************************************/
	fileHost := filehost.NewHTTPClient(cfg)

	handler, err := handler.NewHandler(cfg, repo, tokens, links, mailQueue, fileHost)
	if err != nil {
		logger.Error("无法创建 handler", "error", err)
		return
	}
	handler.RegisterRoutes()

	/**********************************************
	 * 启动到期提醒扫描
	 **********************************************/
	notifierCtx, stopNotifier := context.WithCancel(context.Background())
	defer stopNotifier()

	deadlineNotifier := notifier.New(repo, mailQueue, time.Duration(cfg.Notifier.Interval)*time.Second)
	go deadlineNotifier.Run(notifierCtx)

	/**********************************************
	 * 启动 HTTP 服务器
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      handler.Mux,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("正在启动服务器...", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("无法启动服务器", slog.String("error", err.Error()))
			return
		}
	}()

	<-quit
	logger.Info("正在关闭服务器...")

	stopNotifier()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("关闭服务器失败", slog.String("error", err.Error()))
	}
	logger.Info("服务器已成功关闭")
}
