package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"

	"fs-bridge-go-server/bootstrap"
	"fs-bridge-go-server/domain/entity"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// 命令行参数
	force := flag.Bool("force", false, "跳过确认提示，强制执行清库")
	truncate := flag.Bool("truncate", false, "使用 TRUNCATE（更快，会重置自增ID）")
	tables := flag.String("tables", "", "指定要清空的表，逗号分隔（例如: preview_sessions,users）；留空表示清空所有表")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ 未找到 .env 文件，使用系统环境变量")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("❌ DATABASE_URL 环境变量未设置")
	}

	db := bootstrap.NewDatabase(dsn)

	known := getAllTables(db)
	targetTables := known
	if *tables != "" {
		var err error
		targetTables, err = parseTableNames(*tables, known)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
	}

	// 确认提示
	if !*force {
		fmt.Println("⚠️  警告：此操作将删除数据库中的数据！在线预览会话的房间不会被通知。")
		fmt.Println("📊 受影响的表：")
		for _, t := range targetTables {
			fmt.Printf("   - %s\n", t)
		}

		fmt.Print("\n确认执行清库操作？(yes/no): ")
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(strings.ToLower(input))

		if input != "yes" && input != "y" {
			fmt.Println("❌ 操作已取消")
			return
		}
	}

	fmt.Println("\n🚀 开始清库...")

	for _, tableName := range targetTables {
		var err error
		if *truncate {
			// CASCADE 处理外键约束
			err = db.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", tableName)).Error
		} else {
			err = db.Exec(fmt.Sprintf("DELETE FROM %s", tableName)).Error
		}

		if err != nil {
			log.Printf("❌ 清空表 %s 失败: %v\n", tableName, err)
		} else {
			log.Printf("✅ 已清空表: %s\n", tableName)
		}
	}

	fmt.Println("\n🎉 清库操作完成！")
}

// getAllTables 返回所有需要清空的表名
// 先清有外键依赖的 preview_sessions，再清 users
func getAllTables(db *gorm.DB) []string {
	return []string{
		getTableName(db, &entity.PreviewSession{}),
		getTableName(db, &entity.User{}),
	}
}

// getTableName 用 gorm 的命名策略解析实体对应的表名
func getTableName(db *gorm.DB, model any) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		log.Fatalf("❌ 解析表名失败: %v", err)
	}
	return stmt.Schema.Table
}

// parseTableNames 解析命令行指定的表名，只接受已知表
func parseTableNames(input string, known []string) ([]string, error) {
	var tables []string
	for _, p := range strings.Split(input, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !slices.Contains(known, p) {
			return nil, fmt.Errorf("未知的表: %s（可选: %s）", p, strings.Join(known, ", "))
		}
		tables = append(tables, p)
	}
	return tables, nil
}
