package service

import "fmt"

// 对账错误分类：
// ValidationError  记录形状不合法，该记录终止，不重试
// ConflictError    非冲突安全路径上的唯一键竞争，重读一次可收敛
// DependencyError  父实体落库失败（非重复键原因），整条记录中止并带自然键上报
// StoreUnavailable 存储不可用，向上传播，由批量器决定是否整分片重试

type ValidationError struct {
	Key string // 记录自然键
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("记录校验失败 %s: %v", e.Key, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Key string
	Err error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("唯一键竞争 %s: %v", e.Key, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

type DependencyError struct {
	Key    string
	Entity string // 落库失败的父实体：marketplace/product/link
	Err    error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("依赖实体%s落库失败 %s: %v", e.Entity, e.Key, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

type StoreUnavailable struct {
	Err error
}

func (e *StoreUnavailable) Error() string {
	return fmt.Sprintf("存储不可用: %v", e.Err)
}

func (e *StoreUnavailable) Unwrap() error { return e.Err }
