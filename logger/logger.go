package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevel 日志级别
type LogLevel int

const (
	DEBUG LogLevel = iota // 调试信息
	INFO                  // 一般信息
	WARN                  // 警告信息
	ERROR                 // 错误信息
	FATAL                 // 致命错误（进程退出）
)

var (
	globalLevel LogLevel = INFO
	component   string
	mu          sync.RWMutex

	// 应用日志文件（DEBUG 级别时启用，按日期轮转）
	fileLogger  *log.Logger
	logFile     *os.File
	currentDate string
	fileMu      sync.Mutex
	logDir      = "logs"

	// Web 请求日志文件
	webFileLogger  *log.Logger
	webLogFile     *os.File
	webCurrentDate string
	webFileMu      sync.Mutex

	exitFunc = os.Exit
)

// String 返回日志级别的字符串表示
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel 解析日志级别字符串，无法识别时返回 INFO
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// SetLevel 设置全局日志级别，DEBUG 级别同时写入按日期命名的文件
func SetLevel(level LogLevel) {
	mu.Lock()
	globalLevel = level
	mu.Unlock()

	if level == DEBUG {
		initFileLogger()
	} else {
		closeFileLogger()
	}
}

// GetLevel 获取全局日志级别
func GetLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return globalLevel
}

// SetComponent 设置日志前缀中的组件名（hub / arbitrage / monitor）
func SetComponent(name string) {
	mu.Lock()
	defer mu.Unlock()
	component = name
}

// SetLogDir 设置日志文件目录
func SetLogDir(dir string) {
	fileMu.Lock()
	defer fileMu.Unlock()
	if dir != "" {
		logDir = dir
	}
}

// SetOutput 设置控制台输出目标
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func openDaily(prefix, date string) (*os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("创建日志文件夹失败: %w", err)
	}
	name := filepath.Join(logDir, fmt.Sprintf("%s-%s.log", prefix, date))
	return os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

// initFileLogger 初始化文件日志
func initFileLogger() {
	fileMu.Lock()
	defer fileMu.Unlock()
	rotateLocked(time.Now().Format("2006-01-02"))
}

// rotateLocked 日期变化时切换日志文件，调用前必须持有 fileMu
func rotateLocked(today string) {
	if fileLogger != nil && currentDate == today {
		return
	}
	if logFile != nil {
		logFile.Close()
		logFile, fileLogger = nil, nil
	}
	file, err := openDaily("app-governor", today)
	if err != nil {
		log.Printf("[WARN] 打开日志文件失败: %v，将只输出到控制台", err)
		return
	}
	logFile = file
	currentDate = today
	fileLogger = log.New(file, "", 0)
}

// closeFileLogger 关闭文件日志
func closeFileLogger() {
	fileMu.Lock()
	defer fileMu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
		fileLogger = nil
		currentDate = ""
	}
}

// WriteWebLog 写入 Web 请求日志（供 Gin 中间件使用）
func WriteWebLog(message string) {
	webFileMu.Lock()
	defer webFileMu.Unlock()

	now := time.Now()
	today := now.Format("2006-01-02")
	if webFileLogger == nil || webCurrentDate != today {
		if webLogFile != nil {
			webLogFile.Close()
		}
		webLogFile, webFileLogger = nil, nil
		file, err := openDaily("web-gin", today)
		if err != nil {
			return
		}
		webLogFile = file
		webCurrentDate = today
		webFileLogger = log.New(file, "", 0)
	}
	webFileLogger.Printf("%s %s", now.Format("2006/01/02 15:04:05"), strings.TrimSuffix(message, "\n"))
}

// Close 关闭所有日志文件（进程退出时调用）
func Close() {
	closeFileLogger()

	webFileMu.Lock()
	defer webFileMu.Unlock()
	if webLogFile != nil {
		webLogFile.Close()
		webLogFile = nil
		webFileLogger = nil
		webCurrentDate = ""
	}
}

// logf 内部日志输出函数
func logf(level LogLevel, format string, args ...interface{}) {
	mu.RLock()
	min, comp := globalLevel, component
	mu.RUnlock()
	if level < min {
		return
	}

	prefix := fmt.Sprintf("[%s] ", level.String())
	if comp != "" {
		prefix += "[" + comp + "] "
	}
	message := prefix + fmt.Sprintf(format, args...)
	log.Print(message)

	if min == DEBUG {
		fileMu.Lock()
		now := time.Now()
		rotateLocked(now.Format("2006-01-02"))
		if fileLogger != nil {
			fileLogger.Printf("%s %s", now.Format("2006/01/02 15:04:05"), message)
		}
		fileMu.Unlock()
	}
}

// Debug 输出调试日志
func Debug(format string, args ...interface{}) {
	logf(DEBUG, format, args...)
}

// Info 输出一般信息日志
func Info(format string, args ...interface{}) {
	logf(INFO, format, args...)
}

// Warn 输出警告日志
func Warn(format string, args ...interface{}) {
	logf(WARN, format, args...)
}

// Error 输出错误日志
func Error(format string, args ...interface{}) {
	logf(ERROR, format, args...)
}

// Fatalf 输出致命错误日志并退出进程
func Fatalf(format string, args ...interface{}) {
	logf(FATAL, format, args...)
	Close()
	exitFunc(1)
}
