// Command hybridrec 训练混合隐因子推荐模型、导出到 Store 并为用户召回物品。
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
