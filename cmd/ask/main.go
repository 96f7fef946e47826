package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"medirag-be/internal/bootstrap"
	"medirag-be/internal/config"
	"medirag-be/pkg/database"
)

const separator = "============================================================"

// Interactive terminal loop against the same workflow the REST server
// serves. Conversation memory carries across turns within the store.
func main() {
	cfg := config.Load()

	gormDB, err := database.NewGormDB(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Logger.Sync()

	ctx := context.Background()
	if err := container.ConsumerService.Consume(ctx); err != nil {
		log.Panicf("Unable to start consumer service: %v", err)
	}

	fmt.Println(separator)
	fmt.Println(" 질문을 입력하세요 (종료: 'quit', 'exit', 'q')")
	fmt.Println(" 이전 대화를 기억하여 연속 대화가 가능합니다!")
	fmt.Println(separator)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n질문: ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(question) {
		case "quit", "exit", "q":
			fmt.Println("\n프로그램을 종료합니다. 감사합니다!")
			return
		case "":
			fmt.Println("질문을 입력해주세요.")
			continue
		}

		result, err := container.Runner.RunTurn(ctx, question)
		if err != nil {
			fmt.Printf("\n오류 발생: %v\n", err)
			if result == nil || result.FinalAnswer == "" {
				continue
			}
		}

		fmt.Println("\n" + separator)
		fmt.Println(" 답변")
		fmt.Println(separator)
		if result.Structured != nil {
			encoded, err := json.MarshalIndent(result.Structured, "", "  ")
			if err == nil {
				fmt.Println(string(encoded))
			} else {
				fmt.Println(result.FinalAnswer)
			}
		} else {
			fmt.Println(result.FinalAnswer)
		}
		fmt.Println(separator)
	}
}
